package contour

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// Stitch joins ring b into ring a, producing a single ring.
//
// a is oriented clockwise and b counter-clockwise. We find the closest pair of
// vertices (a[i], b[j]) and bridge across it: a[0..i], b[j..], b[..j], a[i..].
// Both bridge vertices appear twice, so the result has len(a)+len(b)+2 points.
//
// When b is a hole in a, the opposite windings are what lets a single ring
// describe the hole. This is a heuristic. Deeply nested or overlapping rings
// can produce a self-intersecting result.
func Stitch(a, b geom.Ring) (geom.Ring, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !a.IsClockwise() {
		a = a.Reversed()
	}
	if b.IsClockwise() {
		b = b.Reversed()
	}
	i, j := closestPair(a, b)
	out := make(geom.Ring, 0, len(a)+len(b)+2)
	out = append(out, a[:i+1]...)
	out = append(out, b[j:]...)
	out = append(out, b[:j+1]...)
	out = append(out, a[i:]...)
	return out, nil
}

// closestPair is a brute force search. On ties, the lowest i (then j) wins.
func closestPair(a, b geom.Ring) (int, int) {
	bi, bj := 0, 0
	best := a[0].DistanceSquared(b[0])
	for i, p := range a {
		for j, q := range b {
			if d := p.DistanceSquared(q); d < best {
				best = d
				bi, bj = i, j
			}
		}
	}
	return bi, bj
}

// MergeSiblings folds the rings together from left to right
func MergeSiblings(rings []geom.Ring) (geom.Ring, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: no rings to merge", geom.ErrInvalidGeometry)
	}
	merged := rings[0]
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	for _, r := range rings[1:] {
		var err error
		if merged, err = Stitch(merged, r); err != nil {
			return nil, err
		}
	}
	return merged.Clone(), nil
}

// MergeHierarchy stitches every child ring into its top level ancestor, and then
// merges the resulting groups as siblings. parent[i] is -1 for a top level ring.
// Groups are ordered by their top level ring, and children by index.
func MergeHierarchy(rings []geom.Ring, parent []int) (geom.Ring, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: no rings to merge", geom.ErrInvalidGeometry)
	}
	if len(parent) != len(rings) {
		return nil, fmt.Errorf("%w: %v rings but %v hierarchy entries", geom.ErrInvariantViolation, len(rings), len(parent))
	}
	root := func(i int) (int, error) {
		for steps := 0; parent[i] != -1; steps++ {
			if parent[i] < 0 || parent[i] >= len(rings) || steps > len(rings) {
				return 0, fmt.Errorf("%w: invalid ring hierarchy at ring %v", geom.ErrInvariantViolation, i)
			}
			i = parent[i]
		}
		return i, nil
	}

	children := make(map[int][]int)
	roots := []int{}
	for i := range rings {
		r, err := root(i)
		if err != nil {
			return nil, err
		}
		if r == i {
			roots = append(roots, i)
		} else {
			children[r] = append(children[r], i)
		}
	}

	groups := make([]geom.Ring, 0, len(roots))
	for _, r := range roots {
		merged := rings[r]
		if err := merged.Validate(); err != nil {
			return nil, err
		}
		for _, c := range children[r] {
			var err error
			if merged, err = Stitch(merged, rings[c]); err != nil {
				return nil, err
			}
		}
		groups = append(groups, merged)
	}
	return MergeSiblings(groups)
}

// Merge collapses the set into one ring, using its hierarchy
func (s *Set) Merge() (geom.Ring, error) {
	return MergeHierarchy(s.Rings, s.Parent)
}
