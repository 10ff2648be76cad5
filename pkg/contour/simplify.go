package contour

import (
	"math"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// DefaultSimplifyFactor scales the perimeter of a ring into the Douglas-Peucker tolerance
const DefaultSimplifyFactor = 0.001

// Simplify reduces the vertex count of a closed ring with Douglas-Peucker.
// No vertex of the original ring is further than epsilon from the result.
func Simplify(r geom.Ring, epsilon float64) geom.Ring {
	n := len(r)
	if n <= 3 || epsilon <= 0 {
		return r.Clone()
	}

	// Split the closed ring at vertex 0 and the vertex furthest from it,
	// then simplify the two open halves independently.
	far := 0
	farDist := -1.0
	for i := 1; i < n; i++ {
		if d := r[0].DistanceSquared(r[i]); d > farDist {
			far = i
			farDist = d
		}
	}
	keep := make([]bool, n)
	keep[0] = true
	keep[far] = true
	closed := append(r.Clone(), r[0])
	douglasPeucker(closed, 0, far, epsilon, keep)
	douglasPeucker(closed, far, n, epsilon, keep)

	out := make(geom.Ring, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, r[i])
		}
	}
	return padRing(out)
}

// SimplifyByPerimeter uses a tolerance of factor * perimeter
func SimplifyByPerimeter(r geom.Ring, factor float64) geom.Ring {
	return Simplify(r, factor*r.ArcLength())
}

// Simplify every ring in the set, with tolerance proportional to each ring's perimeter
func (s *Set) Simplify(factor float64) *Set {
	out := &Set{
		Rings:  make([]geom.Ring, len(s.Rings)),
		Parent: append([]int(nil), s.Parent...),
	}
	for i, r := range s.Rings {
		out.Rings[i] = SimplifyByPerimeter(r, factor)
	}
	return out
}

// douglasPeucker marks the vertices to keep in pts[first+1 : last]
func douglasPeucker(pts geom.Ring, first, last int, epsilon float64, keep []bool) {
	if last-first < 2 {
		return
	}
	a := pts[first]
	b := pts[last]
	worst := -1
	worstDist := 0.0
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(pts[i], a, b); d > worstDist {
			worst = i
			worstDist = d
		}
	}
	if worst == -1 || worstDist <= epsilon {
		return
	}
	keep[worst%len(keep)] = true
	douglasPeucker(pts, first, worst, epsilon, keep)
	douglasPeucker(pts, worst, last, epsilon, keep)
}

// segmentDistance is the distance from p to the segment a-b
func segmentDistance(p, a, b geom.Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.Distance(a)
	}
	ap := p.Sub(a)
	t := (ap.X*ab.X + ap.Y*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Distance(geom.Point{X: a.X + t*ab.X, Y: a.Y + t*ab.Y})
}
