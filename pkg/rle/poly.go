package rle

import (
	"fmt"
	"math"
	"slices"

	"github.com/cyclopcam/labelkit/pkg/gen"
	"github.com/cyclopcam/labelkit/pkg/geom"
)

// Polygons are upsampled by this factor before the boundary is traced
const polyScale = 5

// FromPolygon rasterizes one ring with the COCO polygon rule, into a mask of size height x width.
// Rings with fewer than 3 points are padded by repeating the last point. Such a ring
// encloses no area, so the result is an empty mask, but it is not an error.
func FromPolygon(ring geom.Ring, height, width int) (*RLE, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: image size %vx%v", geom.ErrInvalidGeometry, width, height)
	}
	if len(ring) == 0 {
		return nil, fmt.Errorf("%w: empty polygon", geom.ErrInvalidGeometry)
	}
	for len(ring) < 3 {
		ring = append(ring.Clone(), ring[len(ring)-1])
	}
	for _, p := range ring {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, fmt.Errorf("%w: non-finite polygon vertex", geom.ErrInvalidGeometry)
		}
	}

	// Upsample, and walk the boundary densely, one step per upsampled pixel.
	k := len(ring)
	x := make([]int, k+1)
	y := make([]int, k+1)
	for j, p := range ring {
		x[j] = int(polyScale*p.X + 0.5)
		y[j] = int(polyScale*p.Y + 0.5)
	}
	x[k] = x[0]
	y[k] = y[0]
	n := 0
	for j := 0; j < k; j++ {
		n += max(gen.Abs(x[j]-x[j+1]), gen.Abs(y[j]-y[j+1])) + 1
	}
	u := make([]int, 0, n)
	v := make([]int, 0, n)
	for j := 0; j < k; j++ {
		xs, xe, ys, ye := x[j], x[j+1], y[j], y[j+1]
		dx := gen.Abs(xe - xs)
		dy := gen.Abs(ys - ye)
		flip := (dx >= dy && xs > xe) || (dx < dy && ys > ye)
		if flip {
			xs, xe = xe, xs
			ys, ye = ye, ys
		}
		s := 0.0
		if dx >= dy && dx != 0 {
			s = float64(ye-ys) / float64(dx)
		} else if dx < dy {
			s = float64(xe-xs) / float64(dy)
		}
		if dx >= dy {
			for d := 0; d <= dx; d++ {
				t := d
				if flip {
					t = dx - d
				}
				u = append(u, t+xs)
				v = append(v, int(float64(ys)+s*float64(t)+0.5))
			}
		} else {
			for d := 0; d <= dy; d++ {
				t := d
				if flip {
					t = dy - d
				}
				v = append(v, t+ys)
				u = append(u, int(float64(xs)+s*float64(t)+0.5))
			}
		}
	}

	// Keep the points where the boundary crosses a pixel column center, and downsample
	h := height
	starts := make([]uint32, 0, len(u)/polyScale+1)
	for j := 1; j < len(u); j++ {
		if u[j] == u[j-1] {
			continue
		}
		xd := float64(u[j] - 1)
		if u[j] < u[j-1] {
			xd = float64(u[j])
		}
		xd = (xd+0.5)/polyScale - 0.5
		if math.Floor(xd) != xd || xd < 0 || xd > float64(width-1) {
			continue
		}
		yd := float64(min(v[j], v[j-1]))
		yd = (yd+0.5)/polyScale - 0.5
		yd = math.Ceil(max(0, min(yd, float64(h))))
		starts = append(starts, uint32(int(xd)*h+int(yd)))
	}

	// Each crossing toggles the fill state, so the sorted crossing positions are the run boundaries
	starts = append(starts, uint32(h*width))
	slices.Sort(starts)
	prev := uint32(0)
	for j, t := range starts {
		starts[j] = t - prev
		prev = t
	}
	counts := make([]uint32, 0, len(starts))
	counts = append(counts, starts[0])
	for j := 1; j < len(starts); {
		if starts[j] > 0 {
			counts = append(counts, starts[j])
			j++
		} else {
			// two crossings at the same spot cancel out
			j++
			if j < len(starts) {
				counts[len(counts)-1] += starts[j]
				j++
			}
		}
	}
	return &RLE{Height: height, Width: width, Counts: counts}, nil
}

// FromPolygons rasterizes every ring and merges them with OR
func FromPolygons(rings []geom.Ring, height, width int) (*RLE, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: no polygons", geom.ErrInvalidGeometry)
	}
	parts := make([]*RLE, 0, len(rings))
	for _, ring := range rings {
		r, err := FromPolygon(ring, height, width)
		if err != nil {
			return nil, err
		}
		parts = append(parts, r)
	}
	return Union(parts)
}

// FromBox rasterizes a box as a 4 point polygon
func FromBox(b geom.Box, height, width int) (*RLE, error) {
	x1, y1, x2, y2 := float64(b.X1), float64(b.Y1), float64(b.X2), float64(b.Y2)
	ring := geom.Ring{{X: x1, Y: y1}, {X: x1, Y: y2}, {X: x2, Y: y2}, {X: x2, Y: y1}}
	return FromPolygon(ring, height, width)
}

