package transport

import (
	"net/http"
	"os"

	"http1server/internal/http/request"
	"http1server/internal/http/response"
	"http1server/internal/resource"
)

func (c *connection) serveStatic(res resource.Resource) *response.Response {
	if res.Kind != resource.Regular {
		c.cause = res.Err
		return response.Error(http.StatusForbidden)
	}

	now := c.hh.now()
	if c.notModified(res) {
		r := response.New(http.StatusNotModified)
		r.Set("Expires", response.FormatTime(now.Add(response.ExpiresAfter)))
		return r
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		c.cause = err
		return response.Error(http.StatusForbidden)
	}

	r := response.New(http.StatusOK)
	r.SetEntity(res.MIME, int64(len(data)), res.ModTime, now)
	r.Body = data
	r.OmitBody = c.req.Method == request.MethodHead
	return r
}

// notModified applies If-Modified-Since at millisecond precision. HEAD
// always gets the full header set.
func (c *connection) notModified(res resource.Resource) bool {
	if !c.req.Conditional || c.req.Method == request.MethodHead {
		return false
	}
	return res.ModTime.UnixMilli() <= c.req.IfModifiedSince.UnixMilli()
}
