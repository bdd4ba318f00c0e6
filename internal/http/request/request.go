package request

import "time"

type Method string

const (
	MethodGet    Method = "GET"
	MethodHead   Method = "HEAD"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodLink   Method = "LINK"
	MethodUnlink Method = "UNLINK"
)

// Known reports whether m is one of the HTTP/1.0 methods this server
// recognises, implemented or not.
func (m Method) Known() bool {
	switch m {
	case MethodGet, MethodHead, MethodPost, MethodPut, MethodDelete, MethodLink, MethodUnlink:
		return true
	}
	return false
}

func (m Method) Implemented() bool {
	return m == MethodGet || m == MethodHead || m == MethodPost
}

const FormURLEncoded = "application/x-www-form-urlencoded"

type Request struct {
	Method  Method
	Path    string
	Version float64
	Headers map[string]string
	Body    []byte

	// Set when an If-Modified-Since header parsed cleanly.
	Conditional     bool
	IfModifiedSince time.Time

	From          string
	UserAgent     string
	ContentType   string
	ContentLength int

	hasContentLength bool
}

func (r *Request) HasContentLength() bool {
	return r.hasContentLength
}

func (r *Request) Header(key string) string {
	return r.Headers[key]
}
