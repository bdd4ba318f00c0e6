package request

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the RFC 1123 layout with a literal GMT zone used by
// If-Modified-Since and every date header this server emits.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Parser builds a Request incrementally from the lines of one connection.
// Callers feed it the request line, then each header line, then the body.
type Parser struct {
	req         *Request
	headerLines int
}

func NewParser() *Parser {
	return &Parser{}
}

// RequestLine validates the first non-empty line. Checks run in a fixed
// order and the first failure decides the status.
func (p *Parser) RequestLine(line string) error {
	lx := lex(line)
	if lx.count() != 3 {
		return BadRequest(ErrTokenCount)
	}

	tok, _ := lx.next()
	method := Method(tok)
	if !method.Known() {
		return BadRequest(ErrUnknownMethod)
	}
	if !method.Implemented() {
		return NewError(http.StatusNotImplemented, ErrNotImplemented)
	}

	path, _ := lx.next()
	if !strings.HasPrefix(path, "/") {
		return BadRequest(ErrBadPath)
	}

	proto, _ := lx.next()
	version, err := parseProto(proto)
	if err != nil {
		return err
	}

	if method == MethodPost && !strings.Contains(path, ".cgi") {
		return NewError(http.StatusMethodNotAllowed, ErrMethodNotAllowed)
	}

	p.req = &Request{
		Method:  method,
		Path:    path,
		Version: version,
		Headers: make(map[string]string),
	}
	p.headerLines = 0
	return nil
}

func parseProto(proto string) (float64, error) {
	scheme, raw, ok := strings.Cut(proto, "/")
	if !ok || scheme != "HTTP" {
		return 0, BadRequest(ErrBadVersion)
	}
	if !isDecimal(raw) {
		return 0, BadRequest(ErrBadVersion)
	}
	version, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, BadRequest(ErrBadVersion)
	}
	if version > 1.0 {
		return 0, NewError(http.StatusHTTPVersionNotSupported, ErrVersionNotSupported)
	}
	return version, nil
}

func isDecimal(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// Header applies one non-blank line of the header region.
func (p *Parser) Header(line string) error {
	req := p.req
	p.headerLines++
	if req.Method != MethodPost && p.headerLines > 1 {
		return BadRequest(ErrTooManyHeaders)
	}

	lx := lex(line)
	name, ok := lx.next()
	if !ok {
		return nil
	}

	if key, found := strings.CutSuffix(name, ":"); found {
		req.Headers[key] = lx.peekRest()
	}

	if name == "If-Modified-Since:" {
		since, err := time.Parse(TimeFormat, lx.rest())
		req.Conditional = err == nil
		req.IfModifiedSince = since
		return nil
	}

	if req.Method != MethodPost {
		return nil
	}

	switch name {
	case "From:":
		if lx.remaining() == 1 {
			req.From, _ = lx.next()
		}
	case "User-Agent:":
		if ua := lx.rest(); ua != "" {
			req.UserAgent = ua
		}
	case "Content-Type:":
		ct, _ := lx.next()
		if ct != FormURLEncoded {
			return NewError(http.StatusInternalServerError, ErrContentType)
		}
		req.ContentType = ct
	case "Content-Length:":
		if lx.remaining() != 1 {
			return NewError(http.StatusLengthRequired, ErrContentLength)
		}
		raw, _ := lx.next()
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewError(http.StatusLengthRequired, ErrContentLength)
		}
		req.ContentLength = n
		req.hasContentLength = true
	}
	return nil
}

// NeedsBody reports whether a body follows the blank line.
func (p *Parser) NeedsBody() bool {
	return p.req != nil && p.req.Method == MethodPost
}

// EndHeaders runs the checks that can only happen once the header region
// is complete.
func (p *Parser) EndHeaders() error {
	if p.req.Method != MethodPost {
		return nil
	}
	if !p.req.hasContentLength {
		return NewError(http.StatusLengthRequired, ErrMissingContentLength)
	}
	if p.req.ContentType == "" {
		return NewError(http.StatusInternalServerError, ErrMissingContentType)
	}
	return nil
}

func (p *Parser) BodyLength() int {
	return p.req.ContentLength
}

func (p *Parser) SetBody(body []byte) {
	p.req.Body = body
}

// Request returns the parsed request, or nil before a valid request line.
func (p *Parser) Request() *Request {
	return p.req
}
