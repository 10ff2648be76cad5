// Package mask is a dense boolean raster, one bool per pixel.
package mask

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// Mask is stored row-major: pixel (x,y) is Pix[y*Width+x]
type Mask struct {
	Height int
	Width  int
	Pix    []bool
}

func New(height, width int) *Mask {
	return &Mask{
		Height: height,
		Width:  width,
		Pix:    make([]bool, height*width),
	}
}

// FromRows builds a mask from [y][x] rows. All rows must be the same length.
func FromRows(rows [][]bool) (*Mask, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	m := New(len(rows), len(rows[0]))
	for y, row := range rows {
		if len(row) != m.Width {
			return nil, fmt.Errorf("%w: mask row %v has %v pixels, expected %v", geom.ErrInvalidGeometry, y, len(row), m.Width)
		}
		copy(m.Pix[y*m.Width:], row)
	}
	return m, nil
}

// FromBox returns a mask of the given size with the box filled in.
// The box is clipped to the image.
func FromBox(height, width int, b geom.Box) *Mask {
	m := New(height, width)
	x1 := max(int(b.X1), 0)
	y1 := max(int(b.Y1), 0)
	x2 := min(int(b.X2), width)
	y2 := min(int(b.Y2), height)
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			m.Pix[y*width+x] = true
		}
	}
	return m
}

func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

func (m *Mask) Clone() *Mask {
	return &Mask{
		Height: m.Height,
		Width:  m.Width,
		Pix:    append([]bool(nil), m.Pix...),
	}
}

func (m *Mask) SameSize(b *Mask) bool {
	return m.Width == b.Width && m.Height == b.Height
}

func (m *Mask) checkSize(b *Mask) error {
	if !m.SameSize(b) {
		return fmt.Errorf("%w: mask sizes differ (%vx%v vs %vx%v)", geom.ErrInvalidGeometry, m.Width, m.Height, b.Width, b.Height)
	}
	return nil
}

func (m *Mask) Equal(b *Mask) bool {
	if !m.SameSize(b) {
		return false
	}
	for i, v := range m.Pix {
		if v != b.Pix[i] {
			return false
		}
	}
	return true
}

// Area is the number of foreground pixels
func (m *Mask) Area() int64 {
	n := int64(0)
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Overlap returns the pixel counts of (m AND b) and (m OR b)
func (m *Mask) Overlap(b *Mask) (intersection, union int64, err error) {
	if err = m.checkSize(b); err != nil {
		return
	}
	for i, v := range m.Pix {
		w := b.Pix[i]
		if v && w {
			intersection++
		}
		if v || w {
			union++
		}
	}
	return
}

// Or returns a new mask that is the pixel-wise union
func (m *Mask) Or(b *Mask) (*Mask, error) {
	if err := m.checkSize(b); err != nil {
		return nil, err
	}
	out := m.Clone()
	for i, v := range b.Pix {
		out.Pix[i] = out.Pix[i] || v
	}
	return out, nil
}

// And returns a new mask that is the pixel-wise intersection
func (m *Mask) And(b *Mask) (*Mask, error) {
	if err := m.checkSize(b); err != nil {
		return nil, err
	}
	out := m.Clone()
	for i, v := range b.Pix {
		out.Pix[i] = out.Pix[i] && v
	}
	return out, nil
}

// Union of all masks. They must all be the same size.
func Union(masks []*Mask) (*Mask, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("%w: no masks to merge", geom.ErrInvalidGeometry)
	}
	out := masks[0].Clone()
	for _, b := range masks[1:] {
		if err := out.checkSize(b); err != nil {
			return nil, err
		}
		for i, v := range b.Pix {
			out.Pix[i] = out.Pix[i] || v
		}
	}
	return out, nil
}

// BoundingBox returns the tightest box around the foreground pixels.
// An empty mask has no box, and returns ErrInvalidGeometry.
func (m *Mask) BoundingBox() (geom.Box, error) {
	x1, y1 := m.Width, m.Height
	x2, y2 := -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v {
				x1 = min(x1, x)
				x2 = max(x2, x)
				y1 = min(y1, y)
				y2 = max(y2, y)
			}
		}
	}
	if x2 < 0 {
		return geom.Box{}, fmt.Errorf("%w: mask is empty", geom.ErrInvalidGeometry)
	}
	return geom.NewBox(int32(x1), int32(y1), int32(x2+1), int32(y2+1))
}

// AndNot returns a new mask with the pixels of b removed
func (m *Mask) AndNot(b *Mask) (*Mask, error) {
	if err := m.checkSize(b); err != nil {
		return nil, err
	}
	out := m.Clone()
	for i, v := range b.Pix {
		out.Pix[i] = out.Pix[i] && !v
	}
	return out, nil
}
