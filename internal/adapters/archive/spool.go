package archive

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Spool is an upload copied to a temporary file. Close removes the file, so a
// deferred Close cleans up on every path.
type Spool struct {
	f    *os.File
	name string
	size int64
}

// NewSpool copies at most limit bytes of r into a temp file in dir named with
// ext. More than limit bytes yields ErrTooLarge and no file is left behind.
func NewSpool(dir, ext string, r io.Reader, limit int64) (*Spool, error) {
	f, err := os.CreateTemp(dir, "submission-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	s := &Spool{f: f, name: f.Name()}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err != nil {
		_ = s.Close()
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if n > limit {
		_ = s.Close()
		return nil, ErrTooLarge
	}
	s.size = n
	return s, nil
}

// File exposes the spooled bytes for random access.
func (s *Spool) File() io.ReaderAt { return s.f }

// Size is the number of bytes spooled.
func (s *Spool) Size() int64 { return s.size }

// Path is the temp file location.
func (s *Spool) Path() string { return s.name }

// Close closes and removes the temp file. It is safe to call more than once.
func (s *Spool) Close() error {
	if s.f == nil {
		return nil
	}
	cerr := s.f.Close()
	s.f = nil
	rerr := os.Remove(s.name)
	if errors.Is(rerr, os.ErrNotExist) {
		rerr = nil
	}
	return errors.Join(cerr, rerr)
}
