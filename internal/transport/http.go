package transport

import (
	"errors"
	"net"
	"net/http"
	"time"

	"http1server/internal/admission"
	"http1server/internal/http/response"

	"github.com/rs/zerolog/log"
)

const acceptBackoff = 10 * time.Millisecond

type httpServer struct {
	port    string
	pool    admission.Pool
	timeout time.Duration
	linger  time.Duration
}

// NewHTTPServer accepts on port. timeout bounds the 503 write to rejected
// connections and linger delays their close.
func NewHTTPServer(port string, pool admission.Pool, timeout, linger time.Duration) Transport {
	return &httpServer{
		port:    port,
		pool:    pool,
		timeout: timeout,
		linger:  linger,
	}
}

func (hs *httpServer) Listen() (net.Listener, error) {
	return net.Listen("tcp", ":"+hs.port)
}

// Serve accepts until listener is closed. Connections the pool cannot take
// are answered with 503 from this goroutine, never from a worker.
func (hs *httpServer) Serve(listener net.Listener) error {
	log.Info().Str("addr", listener.Addr().String()).Msg("HTTP/1.0 server is accepting connections")
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Error().Err(err).Msg("error accepting connection")
			time.Sleep(acceptBackoff)
			continue
		}

		if !hs.pool.Submit(conn) {
			hs.reject(conn)
		}
	}
}

func (hs *httpServer) reject(conn net.Conn) {
	stats := hs.pool.Stats()
	log.Warn().
		Str("remote", conn.RemoteAddr().String()).
		Int("active", stats.Active).
		Int("capacity", stats.Capacity).
		Msg("worker pool exhausted, rejecting connection")

	if hs.timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(hs.timeout))
	}
	if _, err := response.Error(http.StatusServiceUnavailable).WriteTo(conn); err != nil {
		log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("failed to write 503")
	}
	closeWrite(conn)

	time.AfterFunc(hs.linger, func() {
		closeConnection(conn)
	})
}
