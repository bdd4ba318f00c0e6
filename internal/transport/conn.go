package transport

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxLineBytes  = 8 << 10
	writeChunk    = 32 << 10
	maxDrainBytes = 256 << 10
)

var errLineTooLong = errors.New("line exceeds buffer")

// connContext is the per-connection state. It is created by the handler
// for one socket and never shared.
type connContext struct {
	id         string
	conn       net.Conn
	reader     *bufio.Reader
	timeout    time.Duration
	linger     time.Duration
	serverName string
	serverPort string
	closed     bool
}

func newConnContext(conn net.Conn, id string, timeout, linger time.Duration, serverName, serverPort string) *connContext {
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok && addr.Port != 0 {
		serverPort = strconv.Itoa(addr.Port)
	}
	return &connContext{
		id:         id,
		conn:       conn,
		reader:     bufio.NewReaderSize(conn, maxLineBytes),
		timeout:    timeout,
		linger:     linger,
		serverName: serverName,
		serverPort: serverPort,
	}
}

func (c *connContext) armRead() error {
	if c.timeout <= 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.timeout))
}

// readLine returns one line without its CR/LF terminator. A final line
// cut short by EOF is returned without error; the next call reports EOF.
func (c *connContext) readLine() (string, error) {
	if err := c.armRead(); err != nil {
		return "", err
	}
	line, err := c.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", errLineTooLong
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return string(bytes.TrimRight(line, "\r\n")), nil
}

// readBody reads exactly n bytes, re-arming the inactivity deadline before
// every underlying read.
func (c *connContext) readBody(n int) ([]byte, error) {
	var buf bytes.Buffer
	_, err := io.CopyN(&buf, deadlineReader{c}, int64(n))
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return buf.Bytes(), err
}

type deadlineReader struct {
	c *connContext
}

func (r deadlineReader) Read(p []byte) (int, error) {
	if err := r.c.armRead(); err != nil {
		return 0, err
	}
	return r.c.reader.Read(p)
}

// writer applies the inactivity timeout to writes, chunk by chunk.
func (c *connContext) writer() io.Writer {
	return deadlineWriter{conn: c.conn, timeout: c.timeout}
}

type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w deadlineWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > writeChunk {
			chunk = chunk[:writeChunk]
		}
		if w.timeout > 0 {
			if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
				return written, err
			}
		}
		n, err := w.conn.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// close half-closes the socket, drains what the client still sends for at
// most the linger delay so the response is not lost to a reset, then
// closes. It runs at most once.
func (c *connContext) close(linger bool) {
	if c.closed {
		return
	}
	c.closed = true

	if linger && c.linger > 0 {
		closeWrite(c.conn)
		if err := c.conn.SetReadDeadline(time.Now().Add(c.linger)); err == nil {
			_, _ = io.CopyN(io.Discard, c.conn, maxDrainBytes)
		}
	}
	closeConnection(c.conn)
}

func closeWrite(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Debug().Err(err).Msg("half-close failed")
		}
	}
}

func closeConnection(conn net.Conn) {
	err := conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log.Error().Err(err).Msg("error closing connection")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
