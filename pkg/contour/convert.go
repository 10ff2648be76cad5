package contour

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/cyclopcam/labelkit/pkg/rle"
)

// Options controls mask to polygon conversion
type Options struct {
	// Douglas-Peucker tolerance, as a fraction of each ring's perimeter. Zero disables simplification.
	SimplifyFactor float64
	// Merge all rings into a single ring
	Merge bool
}

// DefaultOptions simplifies, and produces one ring per instance
func DefaultOptions() Options {
	return Options{
		SimplifyFactor: DefaultSimplifyFactor,
		Merge:          true,
	}
}

// FromMask converts a mask into polygon rings.
// An empty mask returns ErrInvalidGeometry, because it has no outline.
func FromMask(m *mask.Mask, opt Options) ([]geom.Ring, error) {
	set := FindContours(m)
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: mask has no foreground", geom.ErrInvalidGeometry)
	}
	if opt.SimplifyFactor > 0 {
		set = set.Simplify(opt.SimplifyFactor)
	}
	if !opt.Merge {
		return set.Rings, nil
	}
	merged, err := set.Merge()
	if err != nil {
		return nil, err
	}
	return []geom.Ring{merged}, nil
}

// FromRLE decodes, and then behaves like FromMask
func FromRLE(r *rle.RLE, opt Options) ([]geom.Ring, error) {
	m, err := r.Decode()
	if err != nil {
		return nil, err
	}
	return FromMask(m, opt)
}

// ToRLE rasterizes rings with the COCO polygon rule, and merges them with OR.
// Use this for independent shapes, or for rings that came out of Stitch,
// where the holes are already part of the single ring.
func ToRLE(rings []geom.Ring, height, width int) (*rle.RLE, error) {
	return rle.FromPolygons(rings, height, width)
}

func ToMask(rings []geom.Ring, height, width int) (*mask.Mask, error) {
	r, err := ToRLE(rings, height, width)
	if err != nil {
		return nil, err
	}
	return r.Decode()
}

// ToMask rasterizes the set, cutting the holes out of the outer rings
func (s *Set) ToMask(height, width int) (*mask.Mask, error) {
	var outer, holes []geom.Ring
	for i, r := range s.Rings {
		if s.IsHole(i) {
			holes = append(holes, r)
		} else {
			outer = append(outer, r)
		}
	}
	if len(outer) == 0 {
		return nil, fmt.Errorf("%w: no outer rings", geom.ErrInvalidGeometry)
	}
	m, err := ToMask(outer, height, width)
	if err != nil || len(holes) == 0 {
		return m, err
	}
	hm, err := ToMask(holes, height, width)
	if err != nil {
		return nil, err
	}
	return m.AndNot(hm)
}
