// Package inst holds the Instance Collection, the in-memory form of every
// annotation file and every set of predictions.
package inst

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/mask"
)

// ShapeFormat says which shapes a Collection carries.
// It is chosen when the collection is built, and never changes afterwards.
type ShapeFormat int

const (
	ShapeBox        ShapeFormat = iota // Boxes only
	ShapeBoxAndMask                    // Boxes, plus a mask for every instance
)

func (f ShapeFormat) String() string {
	switch f {
	case ShapeBox:
		return "box"
	case ShapeBoxAndMask:
		return "box+mask"
	}
	return fmt.Sprintf("ShapeFormat(%d)", int(f))
}

// Instance is one detected or annotated object.
// Ground truth instances have Confidence = 1.
type Instance struct {
	Confidence float32
	Category   int32
	Box        geom.Box
	Mask       *mask.Mask // nil when the collection is ShapeBox
}

// Collection is an ordered set of instances, stored as parallel arrays.
//
// All operations return a new Collection, and never modify the receiver.
// Masks are deep-copied, so two collections never share pixels.
// Use Apply to replace a collection's contents in place.
type Collection struct {
	numCategories int
	format        ShapeFormat
	confidences   []float32
	categories    []int32
	boxes         []geom.Box
	masks         []*mask.Mask
}

// New builds a collection from parallel arrays, which it takes ownership of.
// numCategories is the size of the category vocabulary the ids come from.
// masks must be nil for ShapeBox, and have one entry per instance for ShapeBoxAndMask.
func New(numCategories int, format ShapeFormat, confidences []float32, categories []int32, boxes []geom.Box, masks []*mask.Mask) (*Collection, error) {
	c := &Collection{
		numCategories: numCategories,
		format:        format,
		confidences:   confidences,
		categories:    categories,
		boxes:         boxes,
		masks:         masks,
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

// Empty returns a collection with zero instances
func Empty(numCategories int, format ShapeFormat) *Collection {
	c := &Collection{
		numCategories: numCategories,
		format:        format,
	}
	if format == ShapeBoxAndMask {
		c.masks = []*mask.Mask{}
	}
	return c
}

// FromInstances builds a collection from a list of instances
func FromInstances(numCategories int, format ShapeFormat, list []Instance) (*Collection, error) {
	c := Empty(numCategories, format)
	for _, in := range list {
		c.confidences = append(c.confidences, in.Confidence)
		c.categories = append(c.categories, in.Category)
		c.boxes = append(c.boxes, in.Box)
		if format == ShapeBoxAndMask || in.Mask != nil {
			c.masks = append(c.masks, in.Mask)
		}
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

// Check verifies the invariants of the collection.
// Any failure is ErrInvariantViolation (or ErrInvalidGeometry for a bad box),
// which means that the code that built the collection has a bug.
func (c *Collection) Check() error {
	n := len(c.confidences)
	if len(c.categories) != n || len(c.boxes) != n {
		return fmt.Errorf("%w: %v confidences, %v categories, %v boxes", geom.ErrInvariantViolation, n, len(c.categories), len(c.boxes))
	}
	switch c.format {
	case ShapeBox:
		if c.masks != nil {
			return fmt.Errorf("%w: box-only collection has masks", geom.ErrInvariantViolation)
		}
	case ShapeBoxAndMask:
		if len(c.masks) != n {
			return fmt.Errorf("%w: %v instances but %v masks", geom.ErrInvariantViolation, n, len(c.masks))
		}
		for i, m := range c.masks {
			if m == nil {
				return fmt.Errorf("%w: instance %v has no mask", geom.ErrInvariantViolation, i)
			}
			if !m.SameSize(c.masks[0]) {
				return fmt.Errorf("%w: instance %v has mask size %vx%v, expected %vx%v", geom.ErrInvariantViolation, i, m.Width, m.Height, c.masks[0].Width, c.masks[0].Height)
			}
		}
	default:
		return fmt.Errorf("%w: unknown shape format %v", geom.ErrInvariantViolation, c.format)
	}
	for i := 0; i < n; i++ {
		if conf := c.confidences[i]; !(conf >= 0 && conf <= 1) {
			return fmt.Errorf("%w: instance %v has confidence %v", geom.ErrInvariantViolation, i, conf)
		}
		if c.categories[i] < 0 {
			return fmt.Errorf("%w: instance %v has category %v", geom.ErrInvariantViolation, i, c.categories[i])
		}
		if err := c.boxes[i].Validate(); err != nil {
			return fmt.Errorf("instance %v: %w", i, err)
		}
	}
	return nil
}

func (c *Collection) Len() int {
	return len(c.confidences)
}

func (c *Collection) Format() ShapeFormat {
	return c.format
}

func (c *Collection) HasMasks() bool {
	return c.format == ShapeBoxAndMask
}

func (c *Collection) NumCategories() int {
	return c.numCategories
}

// At returns instance i. The mask is shared with the collection, so don't modify it.
func (c *Collection) At(i int) Instance {
	in := Instance{
		Confidence: c.confidences[i],
		Category:   c.categories[i],
		Box:        c.boxes[i],
	}
	if c.masks != nil {
		in.Mask = c.masks[i]
	}
	return in
}

// The following accessors return the internal arrays. They must be treated as read-only.

func (c *Collection) Confidences() []float32 { return c.confidences }
func (c *Collection) Categories() []int32    { return c.categories }
func (c *Collection) Boxes() []geom.Box      { return c.boxes }
func (c *Collection) Masks() []*mask.Mask    { return c.masks }

// MaskSize returns the (height, width) of the masks, if the collection has any
func (c *Collection) MaskSize() (height, width int, ok bool) {
	if len(c.masks) == 0 {
		return 0, 0, false
	}
	return c.masks[0].Height, c.masks[0].Width, true
}
