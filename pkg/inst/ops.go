package inst

import (
	"fmt"
	"slices"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/samber/lo"
)

// Keep selects which side of the threshold FilterByConfidence retains
type Keep int

const (
	KeepAbove Keep = iota // confidence >= threshold
	KeepBelow             // confidence <= threshold
)

// gather builds a new collection from the instances at idx, in that order
func (c *Collection) gather(idx []int) *Collection {
	out := &Collection{
		numCategories: c.numCategories,
		format:        c.format,
		confidences:   make([]float32, len(idx)),
		categories:    make([]int32, len(idx)),
		boxes:         make([]geom.Box, len(idx)),
	}
	if c.masks != nil {
		out.masks = make([]*mask.Mask, len(idx))
	}
	for j, i := range idx {
		out.confidences[j] = c.confidences[i]
		out.categories[j] = c.categories[i]
		out.boxes[j] = c.boxes[i]
		if c.masks != nil {
			out.masks[j] = c.masks[i].Clone()
		}
	}
	return out
}

// Select returns the instances at the given indices, in the order given.
// An index may be repeated.
func (c *Collection) Select(indices []int) (*Collection, error) {
	for _, i := range indices {
		if i < 0 || i >= c.Len() {
			return nil, fmt.Errorf("%w: index %v out of range [0,%v)", geom.ErrInvariantViolation, i, c.Len())
		}
	}
	return c.gather(indices), nil
}

// SelectMask returns the instances where keep is true, preserving order
func (c *Collection) SelectMask(keep []bool) (*Collection, error) {
	if len(keep) != c.Len() {
		return nil, fmt.Errorf("%w: selection has %v entries, collection has %v", geom.ErrInvariantViolation, len(keep), c.Len())
	}
	idx := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return c.gather(idx), nil
}

// SortOrder returns the indices that sort the collection by confidence.
// The sort is stable, so equal confidences keep their relative order.
func (c *Collection) SortOrder(descending bool) []int {
	idx := lo.Range(c.Len())
	slices.SortStableFunc(idx, func(a, b int) int {
		ca, cb := c.confidences[a], c.confidences[b]
		if descending {
			ca, cb = cb, ca
		}
		switch {
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		}
		return 0
	})
	return idx
}

// SortByConfidence returns the collection sorted by confidence (stable)
func (c *Collection) SortByConfidence(descending bool) *Collection {
	return c.gather(c.SortOrder(descending))
}

// FilterByConfidence keeps the instances on one side of the threshold, inclusive
func (c *Collection) FilterByConfidence(threshold float32, keep Keep) *Collection {
	idx := make([]int, 0, c.Len())
	for i, conf := range c.confidences {
		if (keep == KeepAbove && conf >= threshold) || (keep == KeepBelow && conf <= threshold) {
			idx = append(idx, i)
		}
	}
	return c.gather(idx)
}

// TopK returns the k most confident instances, most confident first
func (c *Collection) TopK(k int) *Collection {
	idx := c.SortOrder(true)
	if k < len(idx) {
		idx = idx[:max(k, 0)]
	}
	return c.gather(idx)
}

// Concat appends the others after c, in argument order.
// All operands must share the vocabulary size and shape format.
func (c *Collection) Concat(others ...*Collection) (*Collection, error) {
	out := c.gather(lo.Range(c.Len()))
	for _, o := range others {
		if o.numCategories != c.numCategories {
			return nil, fmt.Errorf("%w: cannot concat collections with %v and %v categories", geom.ErrInvariantViolation, c.numCategories, o.numCategories)
		}
		if o.format != c.format {
			return nil, fmt.Errorf("%w: cannot concat %v collection with %v", geom.ErrUnsupportedShapeFormat, c.format, o.format)
		}
		out.confidences = append(out.confidences, o.confidences...)
		out.categories = append(out.categories, o.categories...)
		out.boxes = append(out.boxes, o.boxes...)
		for _, m := range o.masks {
			out.masks = append(out.masks, m.Clone())
		}
	}
	if err := out.Check(); err != nil {
		return nil, err
	}
	return out, nil
}

// ByCategory partitions the collection by category id, preserving order within each part
func (c *Collection) ByCategory() map[int32]*Collection {
	groups := lo.GroupBy(lo.Range(c.Len()), func(i int) int32 {
		return c.categories[i]
	})
	return lo.MapValues(groups, func(idx []int, _ int32) *Collection {
		return c.gather(idx)
	})
}

// CategoryIDs returns the distinct category ids present, in ascending order
func (c *Collection) CategoryIDs() []int32 {
	ids := lo.Uniq(c.categories)
	slices.Sort(ids)
	return ids
}

// BoxesOnly drops the masks
func (c *Collection) BoxesOnly() *Collection {
	out := c.gather(lo.Range(c.Len()))
	out.format = ShapeBox
	out.masks = nil
	return out
}

// WithBoxMasks gives a box-only collection masks, by filling in each box.
// A collection that already has masks is returned unchanged (as a copy).
func (c *Collection) WithBoxMasks(height, width int) *Collection {
	out := c.gather(lo.Range(c.Len()))
	if c.format == ShapeBoxAndMask {
		return out
	}
	out.format = ShapeBoxAndMask
	out.masks = make([]*mask.Mask, c.Len())
	for i, b := range c.boxes {
		out.masks[i] = mask.FromBox(height, width, b)
	}
	return out
}

// Apply replaces the contents of c with the result of op, and returns c.
// This is a move: any collection that shared state with c before the call
// must be considered stale. If op fails, or its result violates the
// collection invariants, c is left untouched.
//
//	c.Apply(func(c *Collection) (*Collection, error) { return c.SortByConfidence(true), nil })
func (c *Collection) Apply(op func(c *Collection) (*Collection, error)) (*Collection, error) {
	out, err := op(c)
	if err != nil {
		return c, err
	}
	if err := out.Check(); err != nil {
		return c, err
	}
	*c = *out
	return c, nil
}
