package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

type State string

const (
	StateReading    State = "reading"
	StateDispatch   State = "dispatch"
	StateResponding State = "responding"
	StateClosing    State = "closing"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrDuplicateID        = errors.New("connection id already registered")
)

// Entry describes one connection currently held by a worker.
type Entry struct {
	ID      string
	Remote  string
	Started time.Time
	State   State
	Method  string
	Path    string
}

type Registry interface {
	Register(id, remote string) error
	SetState(id string, state State)
	Describe(id, method, path string)
	Get(id string) (Entry, error)
	Remove(id string)
	Snapshot() []Entry
	Len() int
}

type registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewRegistry() Registry {
	return &registry{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (r *registry) Register(id, remote string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return ErrDuplicateID
	}
	r.entries[id] = &Entry{
		ID:      id,
		Remote:  remote,
		Started: r.now(),
		State:   StateReading,
	}
	return nil
}

func (r *registry) SetState(id string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.State = state
	}
}

func (r *registry) Describe(id, method, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.Method = method
		e.Path = path
	}
}

func (r *registry) Get(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Entry{}, ErrConnectionNotFound
	}
	return *e, nil
}

func (r *registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

// Snapshot copies every entry, oldest first.
func (r *registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
