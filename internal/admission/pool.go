package admission

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"http1server/internal/random"
	"http1server/internal/registry"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Handler owns conn from the moment Handle is called, including closing it.
type Handler interface {
	Handle(conn net.Conn, id string)
}

type HandlerFunc func(conn net.Conn, id string)

func (f HandlerFunc) Handle(conn net.Conn, id string) { f(conn, id) }

type Stats struct {
	Capacity int
	Warm     int
	Active   int
	Admitted uint64
	Rejected uint64
}

// Pool is a fixed-capacity set of workers. It never queues: a connection
// is either running on a worker when Submit returns or it is rejected.
type Pool interface {
	Submit(conn net.Conn) bool
	Stats() Stats
	Registry() registry.Registry
	Close()
}

type pool struct {
	handler  Handler
	registry registry.Registry
	ids      random.Random

	sem      *semaphore.Weighted
	capacity int
	warm     int
	jobs     chan net.Conn
	quit     chan struct{}
	wg       sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
	seq       atomic.Uint64
	active    atomic.Int64
	admitted  atomic.Uint64
	rejected  atomic.Uint64
}

// New starts warm long-lived workers. Up to capacity connections run at
// once; past the warm set, extra workers are started on demand and exit
// when their connection is done.
func New(handler Handler, capacity, warm int, reg registry.Registry, ids random.Random) Pool {
	if warm > capacity {
		warm = capacity
	}
	p := &pool{
		handler:  handler,
		registry: reg,
		ids:      ids,
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		warm:     warm,
		jobs:     make(chan net.Conn),
		quit:     make(chan struct{}),
	}
	for i := 0; i < warm; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *pool) Submit(conn net.Conn) bool {
	if p.closed.Load() || !p.sem.TryAcquire(1) {
		p.rejected.Add(1)
		return false
	}
	p.admitted.Add(1)
	p.active.Add(1)

	select {
	case p.jobs <- conn:
	default:
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(conn)
		}()
	}
	return true
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case conn := <-p.jobs:
			p.run(conn)
		case <-p.quit:
			return
		}
	}
}

func (p *pool) run(conn net.Conn) {
	id := p.nextID()
	registered := p.registry.Register(id, conn.RemoteAddr().String()) == nil

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("conn", id).Interface("panic", r).Msg("connection handler panicked")
			_ = conn.Close()
		}
		if registered {
			p.registry.Remove(id)
		}
		p.active.Add(-1)
		p.sem.Release(1)
	}()

	p.handler.Handle(conn, id)
}

func (p *pool) nextID() string {
	id, err := p.ids.ID()
	if err != nil {
		log.Warn().Err(err).Msg("falling back to sequential connection id")
		return "seq-" + strconv.FormatUint(p.seq.Add(1), 10)
	}
	return id
}

func (p *pool) Stats() Stats {
	return Stats{
		Capacity: p.capacity,
		Warm:     p.warm,
		Active:   int(p.active.Load()),
		Admitted: p.admitted.Load(),
		Rejected: p.rejected.Load(),
	}
}

func (p *pool) Registry() registry.Registry {
	return p.registry
}

// Close stops the warm workers and waits for every running handler.
func (p *pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.quit)
	})
	p.wg.Wait()
}
