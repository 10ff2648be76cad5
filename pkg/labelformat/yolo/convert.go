package yolo

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/contour"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/rle"
	"github.com/cyclopcam/labelkit/pkg/vocab"
)

// ToCollection converts label lines into a ground truth collection.
// Every category id must exist in v. Box and polygon lines may be mixed.
// A polygon's box is the enclosing box of its vertices.
func ToCollection(lines []Line, height, width int, v *vocab.Vocab, shape inst.ShapeFormat) (*inst.Collection, error) {
	list := make([]inst.Instance, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		if _, err := v.Name(l.Category); err != nil {
			return nil, fmt.Errorf("line %v: %w", i+1, err)
		}
		ring, err := l.Ring(height, width)
		if err != nil {
			return nil, fmt.Errorf("line %v: %w", i+1, err)
		}
		in := inst.Instance{
			Confidence: 1,
			Category:   l.Category,
		}
		if l.IsBox() {
			in.Box, err = l.Box(height, width)
		} else {
			in.Box, err = ring.BoundingBox()
		}
		if err != nil {
			return nil, fmt.Errorf("line %v: %w", i+1, err)
		}
		if shape == inst.ShapeBoxAndMask {
			r, err := rle.FromPolygon(ring, height, width)
			if err != nil {
				return nil, fmt.Errorf("line %v: %w", i+1, err)
			}
			if in.Mask, err = r.Decode(); err != nil {
				return nil, err
			}
		}
		list = append(list, in)
	}
	return inst.FromInstances(v.Len(), shape, list)
}

// ExportOptions controls how instances become lines
type ExportOptions struct {
	// ShapeBox writes box lines. ShapeBoxAndMask writes polygon lines, traced from the masks.
	Shape   inst.ShapeFormat
	Contour contour.Options // Merge is forced on, because a line holds exactly one ring
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Shape:   inst.ShapeBoxAndMask,
		Contour: contour.DefaultOptions(),
	}
}

// FromCollection converts a collection into label lines for an image of the given size
func FromCollection(c *inst.Collection, height, width int, opt ExportOptions) ([]Line, error) {
	if opt.Shape == inst.ShapeBoxAndMask && !c.HasMasks() {
		return nil, fmt.Errorf("%w: polygon export needs masks, but collection is %v", geom.ErrUnsupportedShapeFormat, c.Format())
	}
	copt := opt.Contour
	copt.Merge = true
	lines := make([]Line, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		in := c.At(i)
		line := Line{Category: in.Category}
		if opt.Shape == inst.ShapeBoxAndMask {
			rings, err := contour.FromMask(in.Mask, copt)
			if err != nil {
				return nil, fmt.Errorf("instance %v: %w", i, err)
			}
			if line.Values, err = padRing(rings[0]).Normalized(height, width); err != nil {
				return nil, err
			}
		} else {
			y, err := in.Box.YOLO(height, width)
			if err != nil {
				return nil, err
			}
			line.Values = []float64{y.CX, y.CY, y.W, y.H}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// padRing makes sure a polygon line has at least 3 points. A polygon line
// with only 2 points would be read back as a box.
func padRing(r geom.Ring) geom.Ring {
	for len(r) < 3 {
		r = append(r, r[len(r)-1])
	}
	return r
}
