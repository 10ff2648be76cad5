// Package contour extracts polygon rings from masks, simplifies them,
// and merges multi-ring shapes into a single ring.
package contour

import (
	"github.com/cyclopcam/labelkit/pkg/gen"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/mask"
)

// Set is the result of contour extraction.
// The hierarchy has two levels: outer boundaries have Parent = -1, and holes
// point at the outer boundary that surrounds them. A blob that sits inside a
// hole is a new outer boundary, at the top level.
type Set struct {
	Rings  []geom.Ring
	Parent []int
}

// Len returns the number of rings
func (s *Set) Len() int {
	return len(s.Rings)
}

// IsHole is true for the inner boundary of a component
func (s *Set) IsHole(i int) bool {
	return s.Parent[i] != -1
}

// Neighbours in clockwise order (y down), as row, column offsets
var neighbours = [8][2]int{
	{0, 1},   // E
	{1, 1},   // SE
	{1, 0},   // S
	{1, -1},  // SW
	{0, -1},  // W
	{-1, -1}, // NW
	{-1, 0},  // N
	{-1, 1},  // NE
}

func direction(di, dj int) int {
	for k, n := range neighbours {
		if n[0] == di && n[1] == dj {
			return k
		}
	}
	panic("not a neighbour")
}

type border struct {
	hole   bool
	parent int // border number
}

// FindContours traces the borders of the foreground using Suzuki-Abe border
// following. Each ring is a sequence of pixel coordinates, with straight runs
// compressed down to their end points.
func FindContours(m *mask.Mask) *Set {
	// Pad by one pixel on every side, so that we never need bounds checks.
	// Border numbers are written into the image as we go.
	h := m.Height + 2
	w := m.Width + 2
	f := make([]int32, h*w)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				f[(y+1)*w+x+1] = 1
			}
		}
	}
	at := func(i, j int) int32 { return f[i*w+j] }

	// Border 1 is the frame of the image, which behaves like a hole
	borders := []border{{}, {hole: true, parent: 0}}
	set := &Set{}
	nbd := int32(1)

	for i := 1; i < h-1; i++ {
		lnbd := int32(1)
		for j := 1; j < w-1; j++ {
			fij := at(i, j)
			var i2, j2 int
			isHole := false
			if fij == 1 && at(i, j-1) == 0 {
				i2, j2 = i, j-1
			} else if fij >= 1 && at(i, j+1) == 0 {
				isHole = true
				i2, j2 = i, j+1
				if fij > 1 {
					lnbd = fij
				}
			} else {
				if fij != 0 && fij != 1 {
					lnbd = gen.Abs(fij)
				}
				continue
			}

			nbd++
			prev := borders[lnbd]
			parent := int(lnbd)
			if isHole == prev.hole {
				parent = prev.parent
			}
			borders = append(borders, border{hole: isHole, parent: parent})

			ring := follow(f, w, i, j, i2, j2, nbd)
			set.Rings = append(set.Rings, padRing(compressChain(ring)))

			if v := at(i, j); v != 1 {
				lnbd = gen.Abs(v)
			}
		}
	}

	// Flatten to two levels. Ring k was border k+2.
	set.Parent = make([]int, len(set.Rings))
	for k := range set.Rings {
		b := borders[k+2]
		if b.hole && b.parent >= 2 {
			set.Parent[k] = b.parent - 2
		} else {
			set.Parent[k] = -1
		}
	}
	return set
}

// follow traces one border, starting at (i,j), with (i2,j2) being the zero pixel from
// which we entered. Returns the border pixels in image coordinates.
func follow(f []int32, w, i, j, i2, j2 int, nbd int32) geom.Ring {
	at := func(i, j int) int32 { return f[i*w+j] }
	point := func(i, j int) geom.Point { return geom.Point{X: float64(j - 1), Y: float64(i - 1)} }

	// Look clockwise from (i2,j2) for any nonzero neighbour
	start := direction(i2-i, j2-j)
	i1, j1 := -1, -1
	for n := 0; n < 8; n++ {
		d := neighbours[(start+n)%8]
		if at(i+d[0], j+d[1]) != 0 {
			i1, j1 = i+d[0], j+d[1]
			break
		}
	}
	if i1 == -1 {
		// isolated pixel
		f[i*w+j] = -nbd
		return geom.Ring{point(i, j)}
	}

	ring := geom.Ring{}
	i2, j2 = i1, j1
	i3, j3 := i, j
	for {
		// Look counter-clockwise, starting just after (i2,j2)
		from := direction(i2-i3, j2-j3)
		eastZero := false
		i4, j4 := 0, 0
		for n := 1; n <= 8; n++ {
			k := (from - n + 16) % 8
			d := neighbours[k]
			if at(i3+d[0], j3+d[1]) != 0 {
				i4, j4 = i3+d[0], j3+d[1]
				break
			}
			if k == 0 {
				eastZero = true
			}
		}
		if eastZero {
			f[i3*w+j3] = -nbd
		} else if at(i3, j3) == 1 {
			f[i3*w+j3] = nbd
		}
		ring = append(ring, point(i3, j3))
		if i4 == i && j4 == j && i3 == i1 && j3 == j1 {
			break
		}
		i2, j2 = i3, j3
		i3, j3 = i4, j4
	}
	return ring
}

// compressChain drops the points in the middle of horizontal, vertical, and diagonal runs
func compressChain(ring geom.Ring) geom.Ring {
	n := len(ring)
	if n < 3 {
		return ring
	}
	out := make(geom.Ring, 0, n)
	for k := 0; k < n; k++ {
		a := ring[(k+n-1)%n]
		b := ring[k]
		c := ring[(k+1)%n]
		if b.Sub(a) != c.Sub(b) {
			out = append(out, b)
		}
	}
	return out
}

// padRing repeats the last point of a tiny ring (a single pixel or a
// one pixel thick line) until it has the 3 points that a polygon needs.
func padRing(r geom.Ring) geom.Ring {
	for len(r) > 0 && len(r) < 3 {
		r = append(r, r[len(r)-1])
	}
	return r
}

