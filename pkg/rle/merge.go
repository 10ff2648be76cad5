package rle

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// Union merges the masks with OR
func Union(rles []*RLE) (*RLE, error) {
	return merge(rles, false)
}

// Intersect merges the masks with AND
func Intersect(rles []*RLE) (*RLE, error) {
	return merge(rles, true)
}

// merge walks the runs of the accumulated result and the next operand in lockstep,
// emitting a new run whenever the combined value changes.
func merge(rles []*RLE, intersect bool) (*RLE, error) {
	if len(rles) == 0 {
		return nil, fmt.Errorf("%w: no RLE masks to merge", geom.ErrInvalidGeometry)
	}
	first := rles[0]
	if len(rles) == 1 {
		return first.Clone(), nil
	}
	h, w := first.Height, first.Width
	acc := append([]uint32(nil), first.Counts...)
	for _, b := range rles[1:] {
		if b.Height != h || b.Width != w {
			return nil, fmt.Errorf("%w: cannot merge RLE of size %vx%v with %vx%v", geom.ErrInvalidGeometry, w, h, b.Width, b.Height)
		}
		if len(acc) == 0 || len(b.Counts) == 0 {
			return nil, fmt.Errorf("%w: RLE has no counts", geom.ErrFormat)
		}
		out := make([]uint32, 0, len(acc)+len(b.Counts))
		ca, cb := acc[0], b.Counts[0]
		va, vb, v := false, false, false
		ia, ib := 1, 1
		cc := uint32(0)
		for more := true; more; {
			c := min(ca, cb)
			cc += c
			remain := uint32(0)
			ca -= c
			if ca == 0 && ia < len(acc) {
				ca = acc[ia]
				ia++
				va = !va
			}
			remain += ca
			cb -= c
			if cb == 0 && ib < len(b.Counts) {
				cb = b.Counts[ib]
				ib++
				vb = !vb
			}
			remain += cb
			prev := v
			if intersect {
				v = va && vb
			} else {
				v = va || vb
			}
			more = remain > 0
			if v != prev || !more {
				out = append(out, cc)
				cc = 0
			}
		}
		acc = out
	}
	return &RLE{Height: h, Width: w, Counts: acc}, nil
}
