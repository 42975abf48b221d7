// Package archive decodes uploaded and reference archives into label sets.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/okian/segscore/internal/domain/model"
)

const (
	defaultMaxMemberBytes = 512 << 20
	defaultMaxElements    = 64 << 20
)

// Decoder turns an archive into subject label maps.
type Decoder interface {
	// Format is the config name of the decoder, e.g. "npz".
	Format() string
	// Extension is the file suffix uploads must carry, including the dot.
	Extension() string
	// Decode reads every member of the archive held by r.
	Decode(ctx context.Context, r io.ReaderAt, size int64) (model.LabelSet, error)
}

// Option configures a decoder.
type Option func(*options)

type options struct {
	maxMemberBytes uint64
	maxElements    uint64
}

// WithMaxMemberBytes caps the uncompressed size of a single member.
func WithMaxMemberBytes(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMemberBytes = n
		}
	}
}

// WithMaxElements caps how many labels a single member may declare. Array
// shapes and image dimensions are checked against it before decoding.
func WithMaxElements(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxElements = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{maxMemberBytes: defaultMaxMemberBytes, maxElements: defaultMaxElements}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ForFormat returns the decoder registered under name.
func ForFormat(name string, opts ...Option) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "npz":
		return NewNPZ(opts...), nil
	case "png":
		return NewPNGZip(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// LoadFile decodes the archive stored at path.
func LoadFile(ctx context.Context, dec Decoder, filePath string) (model.LabelSet, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return dec.Decode(ctx, f, st.Size())
}
