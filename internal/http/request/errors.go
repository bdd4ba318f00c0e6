package request

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTokenCount           = errors.New("request line must have exactly three tokens")
	ErrUnknownMethod        = errors.New("unknown method")
	ErrNotImplemented       = errors.New("method not implemented")
	ErrBadPath              = errors.New("path must start with /")
	ErrBadVersion           = errors.New("malformed protocol version")
	ErrVersionNotSupported  = errors.New("protocol version above 1.0")
	ErrMethodNotAllowed     = errors.New("POST is only allowed for .cgi targets")
	ErrTooManyHeaders       = errors.New("only one header line is accepted for this method")
	ErrContentType          = errors.New("unsupported Content-Type")
	ErrMissingContentType   = errors.New("missing Content-Type")
	ErrContentLength        = errors.New("invalid Content-Length")
	ErrMissingContentLength = errors.New("missing Content-Length")
	ErrShortBody            = errors.New("body shorter than Content-Length")
	ErrBadEncoding          = errors.New("body is not valid form encoding")
)

// Error is a protocol violation that maps onto a client-visible status.
type Error struct {
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(status int, err error) *Error {
	return &Error{Status: status, Err: err}
}

func BadRequest(err error) *Error {
	return NewError(http.StatusBadRequest, err)
}

// StatusOf extracts the status carried by err, falling back to 500 for
// anything that is not a protocol error.
func StatusOf(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Status
	}
	return http.StatusInternalServerError
}
