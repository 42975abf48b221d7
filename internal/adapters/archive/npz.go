package archive

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/bits"
	"strings"

	"github.com/sbinet/npyio/npy"
	"github.com/sbinet/npyio/npz"

	"github.com/okian/segscore/internal/domain/model"
)

// NPZ decodes numpy .npz archives: a zip of .npy members, one per subject.
type NPZ struct {
	opts options
}

// NewNPZ creates an NPZ decoder.
func NewNPZ(opts ...Option) *NPZ {
	return &NPZ{opts: newOptions(opts)}
}

func (*NPZ) Format() string    { return "npz" }
func (*NPZ) Extension() string { return ".npz" }

// Decode reads every .npy member of the archive. Member headers are checked
// against the size caps before any array data is allocated.
func (d *NPZ) Decode(ctx context.Context, r io.ReaderAt, size int64) (model.LabelSet, error) {
	zr, err := npz.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer zr.Close()

	keys := zr.Keys()
	set := make(model.LabelSet, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		subject, ok := cutExt(key, ".npy")
		if !ok {
			return nil, fmt.Errorf("%w: unexpected member %q", ErrCorrupt, key)
		}
		if _, dup := set[subject]; dup {
			return nil, fmt.Errorf("%w: duplicate member %q", ErrCorrupt, key)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lm, err := d.readMember(zr, key)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		set[subject] = lm
	}
	return set, nil
}

func (d *NPZ) readMember(zr *npz.Reader, key string) (model.LabelMap, error) {
	rc, err := zr.Open(key)
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer rc.Close()

	nr, err := npy.NewReader(rc)
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return readNPY(nr, d.opts)
}

// readNPY decodes one .npy stream into a row-major label map.
func readNPY(nr *npy.Reader, o options) (model.LabelMap, error) {
	hdr := nr.Header
	kind := dtypeKind(hdr.Descr.Type)
	itemSize, ok := itemSizes[kind]
	if !ok {
		return model.LabelMap{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, kind)
	}
	if err := checkClaim(hdr.Descr.Shape, itemSize, o); err != nil {
		return model.LabelMap{}, err
	}
	labels, err := readLabels(nr, kind)
	if err != nil {
		return model.LabelMap{}, err
	}
	lm, err := model.NewLabelMap(hdr.Descr.Shape, labels)
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if hdr.Descr.Fortran && len(lm.Shape) > 1 {
		lm.Labels = fortranToC(lm.Labels, lm.Shape)
	}
	return lm, nil
}

// itemSizes maps the accepted dtype kinds to their width in bytes.
var itemSizes = map[string]uint64{
	"b1": 1, "i1": 1, "u1": 1,
	"i2": 2, "u2": 2,
	"i4": 4, "u4": 4, "f4": 4,
	"i8": 8, "u8": 8, "f8": 8,
}

// checkClaim rejects a header whose shape declares more data than the caps allow.
func checkClaim(shape []int, itemSize uint64, o options) error {
	elems := uint64(1)
	for _, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("%w: negative dimension in shape %v", ErrCorrupt, shape)
		}
		hi, lo := bits.Mul64(elems, uint64(dim))
		if hi != 0 || lo > o.maxElements {
			return fmt.Errorf("%w: shape %v exceeds %d elements", ErrTooLarge, shape, o.maxElements)
		}
		elems = lo
	}
	hi, need := bits.Mul64(elems, itemSize)
	if hi != 0 || need > o.maxMemberBytes {
		return fmt.Errorf("%w: shape %v exceeds %d bytes", ErrTooLarge, shape, o.maxMemberBytes)
	}
	return nil
}

// cutExt strips a case-insensitive extension from name.
func cutExt(name, ext string) (string, bool) {
	if len(name) <= len(ext) || !strings.EqualFold(name[len(name)-len(ext):], ext) {
		return "", false
	}
	return name[:len(name)-len(ext)], true
}

// dtypeKind strips the byte-order mark from a numpy descr, e.g. "<i8" -> "i8".
func dtypeKind(descr string) string {
	if descr == "" {
		return descr
	}
	switch descr[0] {
	case '<', '>', '|', '=':
		return descr[1:]
	}
	return descr
}

func readLabels(nr *npy.Reader, kind string) ([]int64, error) {
	switch kind {
	case "b1":
		var v []bool
		if err := nr.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		out := make([]int64, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	case "i1":
		return readInts[int8](nr)
	case "i2":
		return readInts[int16](nr)
	case "i4":
		return readInts[int32](nr)
	case "i8":
		return readInts[int64](nr)
	case "u1":
		return readInts[uint8](nr)
	case "u2":
		return readInts[uint16](nr)
	case "u4":
		return readInts[uint32](nr)
	case "u8":
		var v []uint64
		if err := nr.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		out := make([]int64, len(v))
		for i, x := range v {
			if x > math.MaxInt64 {
				return nil, fmt.Errorf("%w: label %d overflows int64", ErrInvalidLabels, x)
			}
			out[i] = int64(x)
		}
		return out, nil
	case "f4":
		return readFloats[float32](nr)
	case "f8":
		return readFloats[float64](nr)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDType, kind)
	}
}

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

func readInts[T integer](nr *npy.Reader) ([]int64, error) {
	var v []T
	if err := nr.Read(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	out := make([]int64, len(v))
	for i, x := range v {
		if x < 0 {
			return nil, fmt.Errorf("%w: negative label %d", ErrInvalidLabels, x)
		}
		out[i] = int64(x)
	}
	return out, nil
}

// readFloats accepts float arrays only when every value is a non-negative integer.
func readFloats[T float32 | float64](nr *npy.Reader) ([]int64, error) {
	var v []T
	if err := nr.Read(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	out := make([]int64, len(v))
	for i, x := range v {
		f := float64(x)
		if f != math.Trunc(f) || math.IsInf(f, 0) || f < 0 || f >= 1<<63 {
			return nil, fmt.Errorf("%w: value %v is not a non-negative integer", ErrInvalidLabels, f)
		}
		out[i] = int64(f)
	}
	return out, nil
}

// fortranToC reorders column-major data into row-major order.
func fortranToC(data []int64, shape []int) []int64 {
	out := make([]int64, len(data))
	idx := make([]int, len(shape))
	for c := range out {
		// c walks row-major; idx tracks the matching multi-index.
		f, stride := 0, 1
		for k := range shape {
			f += idx[k] * stride
			stride *= shape[k]
		}
		out[c] = data[f]
		for k := len(shape) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}
