package labelme

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/contour"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/cyclopcam/labelkit/pkg/rle"
	"github.com/cyclopcam/labelkit/pkg/vocab"
)

// LoadOptions controls how shapes become instances
type LoadOptions struct {
	Shape inst.ShapeFormat
	// Turn every Shape Group into a single instance, with the union of the
	// group's masks and the enclosing box of its boxes. The first shape of
	// the group decides the category.
	MergeGroups bool
}

// ExportOptions controls how instances become shapes
type ExportOptions struct {
	// ShapeBox writes rectangles. ShapeBoxAndMask writes polygons, traced from the masks.
	Shape   inst.ShapeFormat
	Contour contour.Options
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Shape:   inst.ShapeBoxAndMask,
		Contour: contour.DefaultOptions(),
	}
}

// ToCollection converts the file's shapes into a ground truth collection.
// Every label must be in the vocabulary.
func (f *File) ToCollection(v *vocab.Vocab, opt LoadOptions) (*inst.Collection, error) {
	list := []inst.Instance{}
	for _, group := range f.Groups() {
		if opt.MergeGroups {
			in, err := f.mergeGroup(group, v, opt.Shape)
			if err != nil {
				return nil, err
			}
			list = append(list, in)
			continue
		}
		for i := range group {
			in, r, err := f.shapeInstance(&group[i], v, opt.Shape)
			if err != nil {
				return nil, err
			}
			if r != nil {
				if in.Mask, err = r.Decode(); err != nil {
					return nil, err
				}
			}
			list = append(list, in)
		}
	}
	return inst.FromInstances(v.Len(), opt.Shape, list)
}

// shapeInstance returns the instance without its mask. The mask is returned as an RLE,
// so that a group can be merged before decoding.
func (f *File) shapeInstance(s *Shape, v *vocab.Vocab, shape inst.ShapeFormat) (inst.Instance, *rle.RLE, error) {
	cat, err := v.ID(s.Label)
	if err != nil {
		return inst.Instance{}, nil, err
	}
	box, err := s.Box()
	if err != nil {
		return inst.Instance{}, nil, fmt.Errorf("shape '%v': %w", s.Label, err)
	}
	in := inst.Instance{
		Confidence: 1,
		Category:   cat,
		Box:        box,
	}
	if shape != inst.ShapeBoxAndMask {
		return in, nil, nil
	}
	ring, err := s.Ring()
	if err != nil {
		return inst.Instance{}, nil, err
	}
	r, err := rle.FromPolygon(ring, f.ImageHeight, f.ImageWidth)
	if err != nil {
		return inst.Instance{}, nil, fmt.Errorf("shape '%v': %w", s.Label, err)
	}
	return in, r, nil
}

func (f *File) mergeGroup(group []Shape, v *vocab.Vocab, shape inst.ShapeFormat) (inst.Instance, error) {
	boxes := []geom.Box{}
	rles := []*rle.RLE{}
	var first inst.Instance
	for i := range group {
		in, r, err := f.shapeInstance(&group[i], v, shape)
		if err != nil {
			return inst.Instance{}, err
		}
		if i == 0 {
			first = in
		}
		boxes = append(boxes, in.Box)
		if r != nil {
			rles = append(rles, r)
		}
	}
	box, err := geom.EnclosingBox(boxes)
	if err != nil {
		return inst.Instance{}, err
	}
	first.Box = box
	if len(rles) != 0 {
		merged, err := rle.Union(rles)
		if err != nil {
			return inst.Instance{}, err
		}
		if first.Mask, err = merged.Decode(); err != nil {
			return inst.Instance{}, err
		}
	}
	return first, nil
}

// FromCollection builds a LabelMe file for an image.
// imagePath is reduced to its base name. Polygons need a mask on every instance.
// With opt.Contour.Merge, each instance is a single polygon shape. Otherwise, each
// ring of an instance becomes a shape, and the rings of one instance share a group_id.
func FromCollection(c *inst.Collection, v *vocab.Vocab, imagePath string, height, width int, opt ExportOptions) (*File, error) {
	f := NewFile(imagePath, height, width)
	if opt.Shape == inst.ShapeBoxAndMask && !c.HasMasks() {
		return nil, fmt.Errorf("%w: polygon export needs masks, but collection is %v", geom.ErrUnsupportedShapeFormat, c.Format())
	}
	for i := 0; i < c.Len(); i++ {
		in := c.At(i)
		label, err := v.Name(in.Category)
		if err != nil {
			return nil, err
		}
		if opt.Shape != inst.ShapeBoxAndMask {
			f.Shapes = append(f.Shapes, Shape{
				Label:     label,
				Points:    in.Box.LabelMe(),
				ShapeType: ShapeRectangle,
				Flags:     map[string]bool{},
			})
			continue
		}
		shapes, err := maskShapes(in.Mask, label, i, opt.Contour)
		if err != nil {
			return nil, fmt.Errorf("instance %v: %w", i, err)
		}
		f.Shapes = append(f.Shapes, shapes...)
	}
	return f, nil
}

func maskShapes(m *mask.Mask, label string, index int, opt contour.Options) ([]Shape, error) {
	rings, err := contour.FromMask(m, opt)
	if err != nil {
		return nil, err
	}
	var group *int
	if len(rings) > 1 {
		g := index
		group = &g
	}
	shapes := make([]Shape, 0, len(rings))
	for _, r := range rings {
		shapes = append(shapes, Shape{
			Label:     label,
			Points:    r.Pairs(),
			GroupID:   group,
			ShapeType: ShapePolygon,
			Flags:     map[string]bool{},
		})
	}
	return shapes, nil
}
