package transport

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"http1server/internal/admission"
	"http1server/internal/cgi"
	"http1server/internal/config"
	"http1server/internal/http/request"
	"http1server/internal/http/response"
	"http1server/internal/registry"
	"http1server/internal/resource"

	"github.com/rs/zerolog/log"
)

type httpHandler struct {
	serverName  string
	serverPort  string
	readTimeout time.Duration
	linger      time.Duration

	resolver resource.Resolver
	runner   cgi.Runner
	registry registry.Registry
	now      func() time.Time
}

func NewHTTPHandler(conf config.Config, resolver resource.Resolver, runner cgi.Runner, reg registry.Registry) admission.Handler {
	return newHTTPHandler(conf, resolver, runner, reg)
}

func newHTTPHandler(conf config.Config, resolver resource.Resolver, runner cgi.Runner, reg registry.Registry) *httpHandler {
	return &httpHandler{
		serverName:  conf.ServerName(),
		serverPort:  conf.Port(),
		readTimeout: conf.ReadTimeout(),
		linger:      conf.Linger(),
		resolver:    resolver,
		runner:      runner,
		registry:    reg,
		now:         time.Now,
	}
}

// connection walks one socket through the request/response cycle.
type connection struct {
	*connContext
	hh      *httpHandler
	parser  *request.Parser
	line    string
	req     *request.Request
	res     *response.Response
	cause   error
	written int64
	started time.Time
}

type stateFunc func(*connection) stateFunc

func (hh *httpHandler) Handle(conn net.Conn, id string) {
	c := &connection{
		connContext: newConnContext(conn, id, hh.readTimeout, hh.linger, hh.serverName, hh.serverPort),
		hh:          hh,
		parser:      request.NewParser(),
		started:     hh.now(),
	}
	defer c.close(false)

	for state := awaitRequestLine; state != nil; {
		state = state(c)
	}
}

func (c *connection) setState(state registry.State) {
	if c.hh.registry != nil {
		c.hh.registry.SetState(c.id, state)
	}
}

// fail turns err into the response for this connection.
func (c *connection) fail(err error) stateFunc {
	c.cause = err
	c.res = response.Error(request.StatusOf(err))
	return respond
}

// readFailed maps a read error during parsing onto the next state.
func (c *connection) readFailed(err error) stateFunc {
	switch {
	case isTimeout(err):
		return c.fail(request.NewError(http.StatusRequestTimeout, err))
	case errors.Is(err, errLineTooLong):
		return c.fail(request.BadRequest(err))
	default:
		if !errors.Is(err, io.EOF) {
			log.Debug().Str("conn", c.id).Err(err).Msg("read failed")
		}
		c.cause = err
		return closed
	}
}

func awaitRequestLine(c *connection) stateFunc {
	for {
		line, err := c.readLine()
		if err != nil {
			return c.readFailed(err)
		}
		if strings.TrimSpace(line) != "" {
			c.line = line
			return validateRequestLine
		}
	}
}

func validateRequestLine(c *connection) stateFunc {
	if err := c.parser.RequestLine(c.line); err != nil {
		return c.fail(err)
	}
	c.req = c.parser.Request()
	if c.hh.registry != nil {
		c.hh.registry.Describe(c.id, string(c.req.Method), c.req.Path)
	}
	return readHeaders
}

func readHeaders(c *connection) stateFunc {
	for {
		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			return endHeaders
		}
		if err != nil {
			return c.readFailed(err)
		}
		if line == "" {
			return endHeaders
		}
		if err = c.parser.Header(line); err != nil {
			return c.fail(err)
		}
	}
}

func endHeaders(c *connection) stateFunc {
	if err := c.parser.EndHeaders(); err != nil {
		return c.fail(err)
	}
	if c.parser.NeedsBody() {
		return readBody
	}
	return dispatch
}

func readBody(c *connection) stateFunc {
	body, err := c.readBody(c.parser.BodyLength())
	if err != nil {
		if isTimeout(err) {
			return c.fail(request.NewError(http.StatusRequestTimeout, err))
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return c.fail(request.BadRequest(request.ErrShortBody))
		}
		return c.readFailed(err)
	}
	c.parser.SetBody(body)
	return dispatch
}

func dispatch(c *connection) stateFunc {
	c.setState(registry.StateDispatch)

	res := c.hh.resolver.Resolve(c.req.Path)
	switch {
	case res.Kind == resource.Missing:
		c.res = response.Error(http.StatusNotFound)
	case res.Kind == resource.Ambiguous:
		c.cause = res.Err
		c.res = response.Error(http.StatusInternalServerError)
	case c.req.Method == request.MethodPost:
		c.res = c.serveCGI(res)
	default:
		c.res = c.serveStatic(res)
	}
	return respond
}

func respond(c *connection) stateFunc {
	c.setState(registry.StateResponding)

	n, err := c.res.WriteTo(c.writer())
	c.written = n
	if err != nil {
		log.Error().Str("conn", c.id).Err(err).Int("status", c.res.Status).Msg("failed to write response")
	}
	return closeAfterResponse
}

func closeAfterResponse(c *connection) stateFunc {
	c.setState(registry.StateClosing)
	c.logAccess()
	c.close(true)
	return nil
}

// closed ends a connection that never produced a response.
func closed(c *connection) stateFunc {
	c.close(false)
	return nil
}

func (c *connection) logAccess() {
	ev := log.Info().
		Str("conn", c.id).
		Str("remote", c.conn.RemoteAddr().String()).
		Int("status", c.res.Status).
		Int64("bytes", c.written).
		Dur("duration", c.hh.now().Sub(c.started))
	if c.req != nil {
		ev = ev.Str("method", string(c.req.Method)).Str("path", c.req.Path)
	} else {
		ev = ev.Str("line", c.line)
	}
	if c.cause != nil {
		ev = ev.AnErr("cause", c.cause)
	}
	ev.Msg("request")
}
