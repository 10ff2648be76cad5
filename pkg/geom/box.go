package geom

import (
	"fmt"
	"math"
)

// Box is an axis-aligned bounding box in x1,y1,x2,y2 pixel form.
// The max corner is exclusive, so Width = X2 - X1.
// A valid box always has X2 > X1 and Y2 > Y1. Use NewBox to construct one from untrusted input.
type Box struct {
	X1 int32 `json:"x1"`
	Y1 int32 `json:"y1"`
	X2 int32 `json:"x2"`
	Y2 int32 `json:"y2"`
}

// NewBox returns ErrInvalidGeometry if the box is degenerate
func NewBox(x1, y1, x2, y2 int32) (Box, error) {
	b := Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
	if err := b.Validate(); err != nil {
		return Box{}, err
	}
	return b, nil
}

// Validate checks the x2 > x1 and y2 > y1 invariant.
func (b Box) Validate() error {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return fmt.Errorf("%w: degenerate box %v,%v,%v,%v", ErrInvalidGeometry, b.X1, b.Y1, b.X2, b.Y2)
	}
	return nil
}

func (b Box) Width() int32 {
	return b.X2 - b.X1
}

func (b Box) Height() int32 {
	return b.Y2 - b.Y1
}

// Area is computed in int64, so that large images can't overflow
func (b Box) Area() int64 {
	return int64(b.Width()) * int64(b.Height())
}

// Intersection returns the overlapping region.
// If the boxes do not overlap, the result has zero width or height (it is not a valid Box).
func (b Box) Intersection(o Box) Box {
	x1 := max(b.X1, o.X1)
	y1 := max(b.Y1, o.Y1)
	x2 := min(b.X2, o.X2)
	y2 := min(b.Y2, o.Y2)
	return Box{
		X1: x1,
		Y1: y1,
		X2: max(x1, x2),
		Y2: max(y1, y2),
	}
}

// Union returns the smallest box enclosing both
func (b Box) Union(o Box) Box {
	return Box{
		X1: min(b.X1, o.X1),
		Y1: min(b.Y1, o.Y1),
		X2: max(b.X2, o.X2),
		Y2: max(b.Y2, o.Y2),
	}
}

// IntersectionArea is zero for disjoint or touching boxes
func (b Box) IntersectionArea(o Box) int64 {
	w := int64(min(b.X2, o.X2)) - int64(max(b.X1, o.X1))
	h := int64(min(b.Y2, o.Y2)) - int64(max(b.Y1, o.Y1))
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func (b Box) Center() Point {
	return Point{
		X: float64(b.X1) + float64(b.Width())/2,
		Y: float64(b.Y1) + float64(b.Height())/2,
	}
}

// EnclosingBox returns the union of all boxes.
// This is how the boxes of a shape group collapse into one instance.
func EnclosingBox(boxes []Box) (Box, error) {
	if len(boxes) == 0 {
		return Box{}, fmt.Errorf("%w: no boxes to enclose", ErrInvalidGeometry)
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u = u.Union(b)
	}
	return u, u.Validate()
}

// toInt32 rejects coordinates that are not finite or don't fit in an int32
func toInt32(v float64) (int32, error) {
	if math.IsNaN(v) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: coordinate %v out of range", ErrInvalidGeometry, v)
	}
	return int32(v), nil
}

// boxFromIntegral converts already rounded coordinates, checking the range of each
func boxFromIntegral(vals [4]float64) (Box, error) {
	var c [4]int32
	for i, v := range vals {
		var err error
		if c[i], err = toInt32(v); err != nil {
			return Box{}, err
		}
	}
	return NewBox(c[0], c[1], c[2], c[3])
}

// boxFromFloat builds the integer box that encloses the float extents
func boxFromFloat(x1, y1, x2, y2 float64) (Box, error) {
	return boxFromIntegral([4]float64{math.Floor(x1), math.Floor(y1), math.Ceil(x2), math.Ceil(y2)})
}
