package transport

import (
	"context"
	"errors"
	"net/http"
	"os/exec"

	"http1server/internal/cgi"
	"http1server/internal/http/request"
	"http1server/internal/http/response"
	"http1server/internal/resource"

	"github.com/rs/zerolog/log"
)

const cgiContentType = "text/html"

func (c *connection) serveCGI(res resource.Resource) *response.Response {
	if res.Kind != resource.Regular || !res.Executable {
		c.cause = res.Err
		return response.Error(http.StatusForbidden)
	}

	decoded, err := cgi.Decode(c.req.Body)
	if err != nil {
		c.cause = err
		return response.Error(request.StatusOf(request.BadRequest(request.ErrBadEncoding)))
	}

	env := cgi.Environ(cgi.Params{
		ScriptName: c.req.Path,
		ServerName: c.serverName,
		ServerPort: c.serverPort,
		From:       c.req.From,
		UserAgent:  c.req.UserAgent,
	}, len(decoded))

	out, err := c.hh.runner.Run(context.Background(), res.Path, env, decoded)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			c.cause = err
			return response.Error(http.StatusInternalServerError)
		}
		log.Warn().Str("conn", c.id).Str("script", c.req.Path).Int("exit", exitErr.ExitCode()).Msg("cgi script exited with error")
	}

	if len(out) == 0 {
		return response.New(http.StatusNoContent)
	}

	r := response.New(http.StatusOK)
	r.SetEntity(cgiContentType, int64(len(out)), res.ModTime, c.hh.now())
	r.Body = out
	return r
}
