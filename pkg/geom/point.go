package geom

import "math"

// Point is a polygon vertex in pixel coordinates.
// LabelMe and COCO carry fractional coordinates, so we keep float64.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Distance(b Point) float64 {
	return math.Sqrt(p.DistanceSquared(b))
}

// DistanceSquared avoids the sqrt when only comparisons are needed
func (p Point) DistanceSquared(b Point) float64 {
	dx := p.X - b.X
	dy := p.Y - b.Y
	return dx*dx + dy*dy
}

func (p Point) Sub(b Point) Point {
	return Point{X: p.X - b.X, Y: p.Y - b.Y}
}
