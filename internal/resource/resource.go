package resource

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

type Kind int

const (
	Missing Kind = iota
	// Ambiguous covers a stat that neither proves existence nor absence,
	// such as a permission-denied parent directory.
	Ambiguous
	NotRegular
	Unreadable
	Regular
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Ambiguous:
		return "ambiguous"
	case NotRegular:
		return "not-regular"
	case Unreadable:
		return "unreadable"
	case Regular:
		return "regular"
	}
	return "unknown"
}

type Resource struct {
	Kind       Kind
	Path       string
	MIME       string
	Size       int64
	ModTime    time.Time
	Executable bool
	Err        error
}

type Resolver interface {
	Resolve(path string) Resource
}

type resolver struct {
	root   string
	access func(path string, mode uint32) error
}

// NewResolver maps request paths below root. Paths are joined, not
// confined: a request for /../x escapes root.
func NewResolver(root string) Resolver {
	return &resolver{root: root, access: unix.Access}
}

func (r *resolver) Resolve(path string) Resource {
	full := filepath.Join(r.root, filepath.FromSlash("."+path))
	res := Resource{Path: full}

	info, err := os.Stat(full)
	if err != nil {
		res.Err = err
		if errors.Is(err, fs.ErrNotExist) {
			res.Kind = Missing
		} else {
			res.Kind = Ambiguous
		}
		return res
	}

	res.ModTime = info.ModTime()
	res.Size = info.Size()
	if !info.Mode().IsRegular() {
		res.Kind = NotRegular
		return res
	}

	res.MIME = DetectMIME(full)
	res.Executable = r.access(full, unix.X_OK) == nil
	if err = r.access(full, unix.R_OK); err != nil {
		res.Kind = Unreadable
		res.Err = err
		return res
	}
	res.Kind = Regular
	return res
}
