package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	server, ok := <-accepted
	require.True(t, ok)
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server, client
}

func TestConnContext_ReadLine(t *testing.T) {
	server, client := tcpPair(t)
	_, err := client.Write([]byte("first\r\nsecond\n\r\nlast"))
	require.NoError(t, err)
	require.NoError(t, client.Close())

	c := newConnContext(server, "id", time.Second, 0, "localhost", "80")

	var lines []string
	for {
		line, err := c.readLine()
		if err != nil {
			assert.True(t, errors.Is(err, io.EOF))
			break
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"first", "second", "", "last"}, lines)
}

func TestConnContext_ReadLineTooLong(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	go func() {
		_, _ = client.Write([]byte(strings.Repeat("x", maxLineBytes+1) + "\n"))
	}()

	c := newConnContext(server, "id", time.Second, 0, "localhost", "80")

	_, err := c.readLine()
	assert.True(t, errors.Is(err, errLineTooLong))
}

func TestConnContext_ReadLineTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := newConnContext(server, "id", 20*time.Millisecond, 0, "localhost", "80")

	_, err := c.readLine()
	assert.True(t, isTimeout(err))
}

func TestConnContext_ReadBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		n       int
		want    string
		wantErr error
	}{
		{name: "exact", input: "abcdef", n: 6, want: "abcdef"},
		{name: "leaves the rest", input: "abcdef", n: 3, want: "abc"},
		{name: "zero", input: "abc", n: 0, want: ""},
		{name: "short", input: "ab", n: 5, want: "ab", wantErr: io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := tcpPair(t)
			_, err := client.Write([]byte(tt.input))
			require.NoError(t, err)
			require.NoError(t, client.Close())

			c := newConnContext(server, "id", time.Second, 0, "localhost", "80")

			body, err := c.readBody(tt.n)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestNewConnContext_ServerPortFromSocket(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := net.Dial("tcp", listener.Addr().String())
		if err == nil {
			_ = conn.Close()
		}
	}()

	conn, err := listener.Accept()
	require.NoError(t, err)
	defer conn.Close()

	c := newConnContext(conn, "id", time.Second, 0, "localhost", "9999")
	port := listener.Addr().(*net.TCPAddr).Port
	assert.Equal(t, strconv.Itoa(port), c.serverPort)
}

type recordingConn struct {
	net.Conn
	writes    []int
	deadlines int
	failAfter int
}

func (r *recordingConn) Write(p []byte) (int, error) {
	if r.failAfter > 0 && len(r.writes) == r.failAfter {
		return 0, errors.New("broken pipe")
	}
	r.writes = append(r.writes, len(p))
	return len(p), nil
}

func (r *recordingConn) SetWriteDeadline(time.Time) error {
	r.deadlines++
	return nil
}

func TestDeadlineWriter(t *testing.T) {
	rc := &recordingConn{}
	w := deadlineWriter{conn: rc, timeout: time.Second}

	n, err := w.Write(make([]byte, 2*writeChunk+10))

	require.NoError(t, err)
	assert.Equal(t, 2*writeChunk+10, n)
	assert.Equal(t, []int{writeChunk, writeChunk, 10}, rc.writes)
	assert.Equal(t, 3, rc.deadlines)
}

func TestDeadlineWriter_Error(t *testing.T) {
	rc := &recordingConn{failAfter: 1}
	w := deadlineWriter{conn: rc}

	n, err := w.Write(make([]byte, writeChunk+1))

	assert.Error(t, err)
	assert.Equal(t, writeChunk, n)
	assert.Equal(t, 0, rc.deadlines)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(os.ErrDeadlineExceeded))
	assert.False(t, isTimeout(errors.New("boom")))
	assert.False(t, isTimeout(io.EOF))
}

func TestConnContext_CloseOnce(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConnContext(server, "id", time.Second, 0, "localhost", "80")
	c.close(true)
	c.close(true)

	_, err := server.Write([]byte("x"))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
}
