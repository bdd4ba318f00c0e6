package random

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

const idBytes = 4

var ErrInvalidLength = errors.New("invalid length")

// Random produces identifiers used to correlate a connection across log
// lines and the monitor.
type Random interface {
	ID() (string, error)
	Hex(n int) (string, error)
}

type random struct {
	reader io.Reader
}

func New() Random {
	return &random{reader: rand.Reader}
}

func (r *random) ID() (string, error) {
	return r.Hex(idBytes)
}

func (r *random) Hex(n int) (string, error) {
	if n < 0 {
		return "", ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
