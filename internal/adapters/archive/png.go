package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/okian/segscore/internal/domain/model"
)

// PNGZip decodes a zip of single-channel PNG label images, one per subject.
// Paletted images contribute their palette index; everything else its gray level.
type PNGZip struct {
	opts options
}

// NewPNGZip creates a PNG archive decoder.
func NewPNGZip(opts ...Option) *PNGZip {
	return &PNGZip{opts: newOptions(opts)}
}

func (*PNGZip) Format() string    { return "png" }
func (*PNGZip) Extension() string { return ".zip" }

// Decode reads every .png member of the archive.
func (d *PNGZip) Decode(ctx context.Context, r io.ReaderAt, size int64) (model.LabelSet, error) {
	ms, err := members(r, size, ".png", d.opts)
	if err != nil {
		return nil, err
	}
	set := make(model.LabelSet, len(ms))
	for _, m := range ms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lm, err := d.readMember(m.file)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", m.file.Name, err)
		}
		set[m.subject] = lm
	}
	return set, nil
}

// readMember checks the image dimensions from the PNG header before decoding pixels.
func (d *PNGZip) readMember(f *zip.File) (model.LabelMap, error) {
	rc, err := f.Open()
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := checkClaim([]int{cfg.Height, cfg.Width}, 1, d.opts); err != nil {
		return model.LabelMap{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return model.LabelMap{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return imageLabels(img), nil
}

// member is one zip entry selected for decoding.
type member struct {
	file    *zip.File
	subject string
}

// members opens r as a zip and returns the entries with suffix ext, keyed by
// name without the suffix. Directories are skipped; any other entry is corrupt.
func members(r io.ReaderAt, size int64, ext string, o options) ([]member, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	seen := make(map[string]struct{}, len(zr.File))
	out := make([]member, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		subject, ok := cutExt(f.Name, ext)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected member %q", ErrCorrupt, f.Name)
		}
		if f.UncompressedSize64 > o.maxMemberBytes {
			return nil, fmt.Errorf("%w: member %q is %d bytes", ErrTooLarge, f.Name, f.UncompressedSize64)
		}
		if _, dup := seen[subject]; dup {
			return nil, fmt.Errorf("%w: duplicate member %q", ErrCorrupt, f.Name)
		}
		seen[subject] = struct{}{}
		out = append(out, member{file: f, subject: subject})
	}
	return out, nil
}

// imageLabels flattens img into a [height, width] label map.
func imageLabels(img image.Image) model.LabelMap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	labels := make([]int64, 0, w*h)

	switch src := img.(type) {
	case *image.Paletted:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				labels = append(labels, int64(src.ColorIndexAt(x, y)))
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				labels = append(labels, int64(src.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				labels = append(labels, int64(src.Gray16At(x, y).Y))
			}
		}
	default:
		gray := imaging.Grayscale(img)
		gb := gray.Bounds()
		for y := gb.Min.Y; y < gb.Max.Y; y++ {
			for x := gb.Min.X; x < gb.Max.X; x++ {
				c := color.GrayModel.Convert(gray.At(x, y)).(color.Gray)
				labels = append(labels, int64(c.Y))
			}
		}
	}
	return model.LabelMap{Shape: []int{h, w}, Labels: labels}
}
