package response

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"http1server/internal/http/request"
)

const (
	Proto        = "HTTP/1.0"
	Allow        = "GET, POST, HEAD"
	ExpiresAfter = 7 * 24 * time.Hour
)

type Field struct {
	Key   string
	Value string
}

// Response is built once per request. Header order is preserved so the
// wire form is deterministic.
type Response struct {
	Status int
	Header []Field
	Body   []byte
	// OmitBody keeps Content-Length while dropping the payload, for HEAD.
	OmitBody bool
}

func New(status int) *Response {
	return &Response{Status: status}
}

// Error is a bare status line with an empty header block.
func Error(status int) *Response {
	return &Response{Status: status}
}

func (r *Response) Set(key, value string) {
	for i := range r.Header {
		if r.Header[i].Key == key {
			r.Header[i].Value = value
			return
		}
	}
	r.Header = append(r.Header, Field{Key: key, Value: value})
}

func (r *Response) StatusLine() string {
	return fmt.Sprintf("%s %d %s", Proto, r.Status, http.StatusText(r.Status))
}

// Finalize renders the status line and header block, including the blank
// line that terminates it.
func (r *Response) Finalize() []byte {
	var buf bytes.Buffer
	buf.WriteString(r.StatusLine())
	buf.WriteString("\r\n")
	for _, f := range r.Header {
		buf.WriteString(f.Key)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func (r *Response) WriteTo(w io.Writer) (int64, error) {
	head := r.Finalize()
	n, err := w.Write(head)
	written := int64(n)
	if err != nil || r.OmitBody || len(r.Body) == 0 {
		return written, err
	}
	n, err = w.Write(r.Body)
	return written + int64(n), err
}

// SetEntity fills the headers shared by every 200 response carrying a
// resource.
func (r *Response) SetEntity(contentType string, length int64, modified, now time.Time) {
	r.Set("Content-Type", contentType)
	r.Set("Content-Length", strconv.FormatInt(length, 10))
	r.Set("Last-Modified", FormatTime(modified))
	r.Set("Content-Encoding", "identity")
	r.Set("Allow", Allow)
	r.Set("Expires", FormatTime(now.Add(ExpiresAfter)))
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(request.TimeFormat)
}
