package geom

import (
	"fmt"
	"math"
)

// Ring is one closed polygon contour. The closing edge from the last point back
// to the first is implicit; the first point is not repeated at the end.
// Winding direction is not part of the stored value, but the contour merge
// algorithm normalizes it.
type Ring []Point

// SignedArea is the shoelace sum of x[i]*y[i+1] - x[i+1]*y[i], halved.
// A negative value is what we call clockwise. Contour merging depends on this
// convention, and so do the rings produced by the contour package.
func (r Ring) SignedArea() float64 {
	n := len(r)
	sum := 0.0
	for i := 0; i < n; i++ {
		a := r[i]
		b := r[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

func (r Ring) IsClockwise() bool {
	return r.SignedArea() < 0
}

// Reversed returns a copy with the opposite winding
func (r Ring) Reversed() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

func (r Ring) Clone() Ring {
	return append(Ring(nil), r...)
}

// Validate requires at least 3 points, which is the smallest ring that encloses area
func (r Ring) Validate() error {
	if len(r) < 3 {
		return fmt.Errorf("%w: ring has %v points, need at least 3", ErrInvalidGeometry, len(r))
	}
	return nil
}

// ArcLength is the perimeter of the closed ring
func (r Ring) ArcLength() float64 {
	total := 0.0
	for i := range r {
		total += r[i].Distance(r[(i+1)%len(r)])
	}
	return total
}

// BoundingBox returns the enclosing integer box of the vertices
func (r Ring) BoundingBox() (Box, error) {
	if len(r) == 0 {
		return Box{}, fmt.Errorf("%w: empty ring", ErrInvalidGeometry)
	}
	x1, y1 := math.Inf(1), math.Inf(1)
	x2, y2 := math.Inf(-1), math.Inf(-1)
	for _, p := range r {
		x1 = math.Min(x1, p.X)
		y1 = math.Min(y1, p.Y)
		x2 = math.Max(x2, p.X)
		y2 = math.Max(y2, p.Y)
	}
	return boxFromFloat(x1, y1, x2, y2)
}

// BoundingBoxOfRings encloses the vertices of every ring
func BoundingBoxOfRings(rings []Ring) (Box, error) {
	boxes := make([]Box, 0, len(rings))
	for _, r := range rings {
		b, err := r.BoundingBox()
		if err != nil {
			return Box{}, err
		}
		boxes = append(boxes, b)
	}
	return EnclosingBox(boxes)
}

// Flat returns the COCO form x1,y1,x2,y2,...
func (r Ring) Flat() []float64 {
	flat := make([]float64, 0, len(r)*2)
	for _, p := range r {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

// RingFromFlat parses the COCO form
func RingFromFlat(flat []float64) (Ring, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: flat polygon has odd length %v", ErrFormat, len(flat))
	}
	r := make(Ring, len(flat)/2)
	for i := range r {
		r[i] = Point{X: flat[i*2], Y: flat[i*2+1]}
	}
	return r, nil
}

// Pairs returns the LabelMe form [[x,y],...]
func (r Ring) Pairs() [][2]float64 {
	pairs := make([][2]float64, len(r))
	for i, p := range r {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	return pairs
}

func RingFromPairs(pairs [][2]float64) Ring {
	r := make(Ring, len(pairs))
	for i, p := range pairs {
		r[i] = Point{X: p[0], Y: p[1]}
	}
	return r
}

// Normalized returns the YOLO polygon form: flat, with x divided by width and y by height
func (r Ring) Normalized(height, width int) ([]float64, error) {
	if err := checkImageSize(height, width); err != nil {
		return nil, err
	}
	flat := make([]float64, 0, len(r)*2)
	for _, p := range r {
		flat = append(flat, p.X/float64(width), p.Y/float64(height))
	}
	return flat, nil
}

// RingFromNormalized is the inverse of Normalized
func RingFromNormalized(flat []float64, height, width int) (Ring, error) {
	if err := checkImageSize(height, width); err != nil {
		return nil, err
	}
	r, err := RingFromFlat(flat)
	if err != nil {
		return nil, err
	}
	for i := range r {
		r[i].X *= float64(width)
		r[i].Y *= float64(height)
	}
	return r, nil
}
