package cgi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

var (
	ErrStart   = errors.New("cgi: start")
	ErrTimeout = errors.New("cgi: timed out")
)

// Params carries the request facts a script can see.
type Params struct {
	ScriptName string
	ServerName string
	ServerPort string
	From       string
	UserAgent  string
}

// Decode undoes application/x-www-form-urlencoded escaping ('+' is a space).
func Decode(body []byte) ([]byte, error) {
	s, err := url.QueryUnescape(string(body))
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Environ lists only the variables that have a value. CONTENT_LENGTH is the
// length of the decoded body.
func Environ(p Params, contentLength int) []string {
	env := []string{"CONTENT_LENGTH=" + strconv.Itoa(contentLength)}
	add := func(key, value string) {
		if value != "" {
			env = append(env, key+"="+value)
		}
	}
	add("SCRIPT_NAME", p.ScriptName)
	add("SERVER_NAME", p.ServerName)
	add("SERVER_PORT", p.ServerPort)
	add("HTTP_FROM", p.From)
	add("HTTP_USER_AGENT", p.UserAgent)
	return env
}

type Runner interface {
	// Run executes path with exactly env, feeds it stdin and returns all of
	// its standard output. A non-zero exit is reported as *exec.ExitError
	// alongside whatever output was captured.
	Run(ctx context.Context, path string, env []string, stdin []byte) ([]byte, error)
}

// waitDelay bounds how long Wait lingers on inherited pipes after the
// script has been killed.
const waitDelay = 2 * time.Second

type runner struct {
	timeout time.Duration
}

// NewRunner returns a Runner. A zero timeout waits for the script forever.
func NewRunner(timeout time.Duration) Runner {
	return &runner{timeout: timeout}
}

func (r *runner) Run(ctx context.Context, path string, env []string, stdin []byte) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStart, err)
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, abs)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.WaitDelay = waitDelay

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStart, err)
	}

	err = cmd.Wait()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, ErrTimeout
	}
	return stdout.Bytes(), err
}
