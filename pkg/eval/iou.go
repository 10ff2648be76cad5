// Package eval scores predictions against ground truth: IoU, matching, and
// precision/recall/AP.
package eval

import (
	"fmt"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/mask"
)

// Mode chooses the denominator of the overlap score
type Mode int

const (
	ModeIoU Mode = iota // intersection / union
	ModeIoF             // intersection / area of the first operand
)

func (m Mode) String() string {
	switch m {
	case ModeIoU:
		return "iou"
	case ModeIoF:
		return "iof"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Epsilon is added to every denominator
const Epsilon = 1e-8

// Matrix is a dense row-major float32 matrix.
// For overlap scores, rows are the first operand (ground truth) and columns the second (predictions).
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

func (m *Matrix) At(r, c int) float32 {
	return m.Data[r*m.Cols+c]
}

func (m *Matrix) Set(r, c int, v float32) {
	m.Data[r*m.Cols+c] = v
}

func ratio(inter, areaA, areaB int64, mode Mode) float32 {
	var denom float64
	if mode == ModeIoF {
		denom = float64(areaA)
	} else {
		denom = float64(areaA + areaB - inter)
	}
	return float32(float64(inter) / (denom + Epsilon))
}

// BoxOverlap computes the pairwise overlap of every box in a against every box in b.
// Pairs that don't touch are found with a spatial index, and left at zero.
func BoxOverlap(a, b []geom.Box, mode Mode) *Matrix {
	m := NewMatrix(len(a), len(b))
	if len(a) == 0 || len(b) == 0 {
		return m
	}
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(b))
	for _, box := range b {
		fb.Add(box.X1, box.Y1, box.X2, box.Y2)
	}
	fb.Finish()
	for i, ba := range a {
		areaA := ba.Area()
		for _, j := range fb.Search(ba.X1, ba.Y1, ba.X2, ba.Y2) {
			inter := ba.IntersectionArea(b[j])
			if inter == 0 {
				continue
			}
			m.Set(i, j, ratio(inter, areaA, b[j].Area(), mode))
		}
	}
	return m
}

// extent is the foreground area and bounding box of a mask
type extent struct {
	area  int64
	box   geom.Box
	empty bool
}

func measure(m *mask.Mask) extent {
	box, err := m.BoundingBox()
	if err != nil {
		return extent{empty: true}
	}
	return extent{area: m.Area(), box: box}
}

// MaskOverlap computes the pairwise overlap of masks. All masks must be the same size.
// Pixels are only compared inside the intersection of the two masks' bounding boxes.
func MaskOverlap(a, b []*mask.Mask, mode Mode) (*Matrix, error) {
	m := NewMatrix(len(a), len(b))
	if len(a) == 0 || len(b) == 0 {
		return m, nil
	}
	for _, mk := range append(append([]*mask.Mask{}, a...), b...) {
		if !mk.SameSize(a[0]) {
			return nil, fmt.Errorf("%w: masks of different sizes (%vx%v vs %vx%v)", geom.ErrInvalidGeometry, mk.Width, mk.Height, a[0].Width, a[0].Height)
		}
	}
	ea := make([]extent, len(a))
	eb := make([]extent, len(b))
	for i, mk := range a {
		ea[i] = measure(mk)
	}
	for j, mk := range b {
		eb[j] = measure(mk)
	}
	w := a[0].Width
	for i, ma := range a {
		for j, mb := range b {
			if ea[i].empty || eb[j].empty || ea[i].box.IntersectionArea(eb[j].box) == 0 {
				continue
			}
			r := ea[i].box.Intersection(eb[j].box)
			inter := int64(0)
			for y := int(r.Y1); y < int(r.Y2); y++ {
				for x := int(r.X1); x < int(r.X2); x++ {
					if ma.Pix[y*w+x] && mb.Pix[y*w+x] {
						inter++
					}
				}
			}
			m.Set(i, j, ratio(inter, ea[i].area, eb[j].area, mode))
		}
	}
	return m, nil
}

// Overlap scores every instance of gt against every instance of pred, using
// either their boxes or their masks. Asking for masks from a collection that
// has none is ErrUnsupportedShapeFormat.
func Overlap(gt, pred *inst.Collection, shape inst.ShapeFormat, mode Mode) (*Matrix, error) {
	switch shape {
	case inst.ShapeBox:
		return BoxOverlap(gt.Boxes(), pred.Boxes(), mode), nil
	case inst.ShapeBoxAndMask:
		if !gt.HasMasks() || !pred.HasMasks() {
			return nil, fmt.Errorf("%w: mask overlap needs masks on both collections (have %v and %v)", geom.ErrUnsupportedShapeFormat, gt.Format(), pred.Format())
		}
		return MaskOverlap(gt.Masks(), pred.Masks(), mode)
	}
	return nil, fmt.Errorf("%w: %v", geom.ErrUnsupportedShapeFormat, shape)
}
