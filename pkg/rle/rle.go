// Package rle implements the COCO run-length encoding of binary masks.
//
// Pixels are visited in column-major order (down each column, then across),
// and Counts alternates between runs of 0 and runs of 1, starting with 0.
// The first run may therefore have length zero.
package rle

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/mask"
)

// RLE is a run-length encoded mask of size Height x Width
type RLE struct {
	Height int
	Width  int
	Counts []uint32
}

// Encode a mask. The result always sums to Height*Width.
func Encode(m *mask.Mask) *RLE {
	h, w := m.Height, m.Width
	counts := make([]uint32, 0, 16)
	prev := false
	run := uint32(0)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			v := m.Pix[y*w+x]
			if v != prev {
				counts = append(counts, run)
				run = 0
				prev = v
			}
			run++
		}
	}
	counts = append(counts, run)
	return &RLE{Height: h, Width: w, Counts: counts}
}

// Validate checks that the runs cover the mask exactly
func (r *RLE) Validate() error {
	if r.Height < 0 || r.Width < 0 {
		return fmt.Errorf("%w: negative RLE size %vx%v", geom.ErrFormat, r.Width, r.Height)
	}
	total := int64(0)
	for _, c := range r.Counts {
		total += int64(c)
	}
	if total != int64(r.Height)*int64(r.Width) {
		return fmt.Errorf("%w: RLE counts sum to %v, but size is %vx%v", geom.ErrFormat, total, r.Width, r.Height)
	}
	return nil
}

// Decode to a dense mask
func (r *RLE) Decode() (*mask.Mask, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	h, w := r.Height, r.Width
	m := mask.New(h, w)
	i := 0
	v := false
	for _, c := range r.Counts {
		if v {
			for j := i; j < i+int(c); j++ {
				// column-major index j -> x = j / h, y = j % h
				m.Pix[(j%h)*w+j/h] = true
			}
		}
		i += int(c)
		v = !v
	}
	return m, nil
}

func (r *RLE) Clone() *RLE {
	return &RLE{
		Height: r.Height,
		Width:  r.Width,
		Counts: append([]uint32(nil), r.Counts...),
	}
}

func (r *RLE) Equal(b *RLE) bool {
	if r.Height != b.Height || r.Width != b.Width || len(r.Counts) != len(b.Counts) {
		return false
	}
	for i, c := range r.Counts {
		if c != b.Counts[i] {
			return false
		}
	}
	return true
}

// Area is the number of foreground pixels
func (r *RLE) Area() int64 {
	a := int64(0)
	for i := 1; i < len(r.Counts); i += 2 {
		a += int64(r.Counts[i])
	}
	return a
}

// ToBox returns the tight bounding box of the foreground.
// An empty mask returns ErrInvalidGeometry.
func (r *RLE) ToBox() (geom.Box, error) {
	if r.Area() == 0 {
		return geom.Box{}, fmt.Errorf("%w: RLE mask is empty", geom.ErrInvalidGeometry)
	}
	h := int64(r.Height)
	// A trailing run of zeros says nothing about the extents
	m := (len(r.Counts) / 2) * 2
	xs, ys := int64(r.Width), h
	xe, ye := int64(0), int64(0)
	xp := int64(0)
	cc := int64(0)
	for j := 0; j < m; j++ {
		cc += int64(r.Counts[j])
		t := cc - int64(j%2)
		y := t % h
		x := (t - y) / h
		if j%2 == 0 {
			xp = x
		} else if xp < x {
			// the run of ones wraps over a column boundary, so it touches the top and bottom
			ys = 0
			ye = h - 1
		}
		xs = min(xs, x)
		xe = max(xe, x)
		ys = min(ys, y)
		ye = max(ye, y)
	}
	return geom.NewBox(int32(xs), int32(ys), int32(xe+1), int32(ye+1))
}
