package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"http1server/internal/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Port() string               { return m.Called().String(0) }
func (m *MockConfig) ServerName() string         { return m.Called().String(0) }
func (m *MockConfig) DocRoot() string            { return m.Called().String(0) }
func (m *MockConfig) MaxWorkers() int            { return m.Called().Int(0) }
func (m *MockConfig) WarmWorkers() int           { return m.Called().Int(0) }
func (m *MockConfig) ReadTimeout() time.Duration { return m.Called().Get(0).(time.Duration) }
func (m *MockConfig) Linger() time.Duration      { return m.Called().Get(0).(time.Duration) }
func (m *MockConfig) CGITimeout() time.Duration  { return m.Called().Get(0).(time.Duration) }
func (m *MockConfig) LogLevel() string           { return m.Called().String(0) }
func (m *MockConfig) LogFile() string            { return m.Called().String(0) }
func (m *MockConfig) MonitorEnabled() bool       { return m.Called().Bool(0) }
func (m *MockConfig) PprofEnabled() bool         { return m.Called().Bool(0) }
func (m *MockConfig) PprofPort() string          { return m.Called().String(0) }

func randomAvailablePort(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer func(listener net.Listener) {
		_ = listener.Close()
	}(listener)

	return strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)
}

func newMockConfig(t *testing.T, port string) *MockConfig {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("hello"), 0o644))

	mc := &MockConfig{}
	mc.On("Port").Return(port)
	mc.On("ServerName").Return("127.0.0.1")
	mc.On("DocRoot").Return(root)
	mc.On("MaxWorkers").Return(4)
	mc.On("WarmWorkers").Return(2)
	mc.On("ReadTimeout").Return(time.Second)
	mc.On("Linger").Return(20 * time.Millisecond)
	mc.On("CGITimeout").Return(time.Duration(0))
	mc.On("LogLevel").Return("info")
	mc.On("LogFile").Return("")
	mc.On("MonitorEnabled").Return(false)
	mc.On("PprofEnabled").Return(false)
	mc.On("PprofPort").Return("0")
	return mc
}

// override replaces a previously registered expectation.
func override(mc *MockConfig, method string, value any) {
	for _, call := range mc.ExpectedCalls {
		if call.Method == method {
			call.ReturnArguments = mock.Arguments{value}
		}
	}
}

func get(t *testing.T, port, path string) string {
	t.Helper()
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", port))
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.0\r\n\r\n", path)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func waitForPort(t *testing.T, port string) {
	t.Helper()
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", port))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNew(t *testing.T) {
	mc := newMockConfig(t, "0")

	b, err := New(mc)

	require.NoError(t, err)
	assert.NotNil(t, b.Config)
	assert.NotNil(t, b.Randomizer)
	assert.NotNil(t, b.Registry)
	assert.NotNil(t, b.Pool)
	assert.NotNil(t, b.Server)
	assert.NotNil(t, b.Monitor)
	assert.NotNil(t, b.SignalChan)
	assert.Equal(t, 4, b.Pool.Stats().Capacity)
	assert.Equal(t, 2, b.Pool.Stats().Warm)
	assert.Equal(t, b.Registry, b.Pool.Registry())
	b.Pool.Close()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, mc *MockConfig, b *Bootstrap)
		exercise    func(t *testing.T, port string, mc *MockConfig, b *Bootstrap)
		expectError bool
	}{
		{
			name: "serves requests until signalled",
			exercise: func(t *testing.T, port string, _ *MockConfig, b *Bootstrap) {
				out := get(t, port, "/index.html")
				assert.Contains(t, out, "HTTP/1.0 200 OK\r\n")
				assert.Contains(t, out, "\r\n\r\nhello")

				out = get(t, port, "/missing")
				assert.Equal(t, "HTTP/1.0 404 Not Found\r\n\r\n", out)

				b.SignalChan <- os.Interrupt
			},
		},
		{
			name: "pprof enabled",
			setup: func(t *testing.T, mc *MockConfig, _ *Bootstrap) {
				override(mc, "PprofEnabled", true)
				override(mc, "PprofPort", randomAvailablePort(t))
			},
			exercise: func(t *testing.T, _ string, mc *MockConfig, b *Bootstrap) {
				url := fmt.Sprintf("http://localhost:%s/debug/pprof/", mc.PprofPort())
				require.Eventually(t, func() bool {
					resp, err := http.Get(url)
					if err != nil {
						return false
					}
					_ = resp.Body.Close()
					return resp.StatusCode == http.StatusOK
				}, 2*time.Second, 20*time.Millisecond)

				b.SignalChan <- os.Interrupt
			},
		},
		{
			name: "monitor quit shuts down",
			setup: func(t *testing.T, mc *MockConfig, b *Bootstrap) {
				override(mc, "MonitorEnabled", true)
				b.Monitor = func(ctx context.Context, source monitor.Source, title string) error {
					assert.Contains(t, title, "http1server")
					assert.Equal(t, 4, source.Stats().Capacity)
					time.Sleep(100 * time.Millisecond)
					return nil
				}
			},
		},
		{
			name: "monitor failure",
			setup: func(t *testing.T, mc *MockConfig, b *Bootstrap) {
				override(mc, "MonitorEnabled", true)
				b.Monitor = func(ctx context.Context, source monitor.Source, title string) error {
					return errors.New("no terminal")
				}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := randomAvailablePort(t)
			mc := newMockConfig(t, port)
			b, err := New(mc)
			require.NoError(t, err)
			if tt.setup != nil {
				tt.setup(t, mc, b)
			}

			done := make(chan error, 1)
			go func() {
				done <- b.Run()
			}()

			if tt.exercise != nil {
				waitForPort(t, port)
				tt.exercise(t, port, mc, b)
			}

			select {
			case err = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not return")
			}
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun_ListenError(t *testing.T) {
	mc := newMockConfig(t, "invalid")
	b, err := New(mc)
	require.NoError(t, err)

	err = b.Run()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start http server")
}

func TestRun_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	mc := newMockConfig(t, strconv.Itoa(listener.Addr().(*net.TCPAddr).Port))
	b, err := New(mc)
	require.NoError(t, err)

	assert.Error(t, b.Run())
}
