package coco

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/contour"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/cyclopcam/labelkit/pkg/rle"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/samber/lo"
)

// Vocab returns the vocabulary declared by the file's categories list
func (d *Dataset) Vocab() (*vocab.Vocab, error) {
	m := make(map[string]int32, len(d.Categories))
	for _, c := range d.Categories {
		if _, dup := m[c.Name]; dup {
			return nil, fmt.Errorf("%w: category '%v' appears twice", geom.ErrFormat, c.Name)
		}
		m[c.Name] = c.ID
	}
	return vocab.New(m)
}

// Remap translates the file's category ids into the ids of v, matching by name.
// Every category of the file must exist in v.
func (d *Dataset) Remap(v *vocab.Vocab) (map[int32]int32, error) {
	remap := map[int32]int32{}
	for _, c := range d.Categories {
		id, err := v.ID(c.Name)
		if err != nil {
			return nil, err
		}
		remap[c.ID] = id
	}
	return remap, nil
}

func remapID(remap map[int32]int32, id int32) (int32, error) {
	if remap == nil {
		return id, nil
	}
	to, ok := remap[id]
	if !ok {
		return 0, fmt.Errorf("%w: category id %v", vocab.ErrUnknownCategory, id)
	}
	return to, nil
}

// Mask rasterizes the segmentation at the image size.
// Multiple polygons are merged with OR.
func (s *Segmentation) Mask(height, width int) (*mask.Mask, error) {
	if s.IsEmpty() {
		return nil, fmt.Errorf("%w: empty segmentation", geom.ErrFormat)
	}
	if s.RLE != nil {
		if s.RLE.Height != height || s.RLE.Width != width {
			return nil, fmt.Errorf("%w: RLE size %vx%v does not match image size %vx%v", geom.ErrFormat, s.RLE.Width, s.RLE.Height, width, height)
		}
		return s.RLE.Decode()
	}
	rings := make([]geom.Ring, 0, len(s.Polygons))
	for _, flat := range s.Polygons {
		r, err := geom.RingFromFlat(flat)
		if err != nil {
			return nil, err
		}
		rings = append(rings, r)
	}
	r, err := rle.FromPolygons(rings, height, width)
	if err != nil {
		return nil, err
	}
	return r.Decode()
}

// AnnotationsToCollection converts the annotations of one image.
// remap translates category ids (see Remap). A nil remap keeps the file's ids.
// With ShapeBoxAndMask, every annotation needs a segmentation.
func AnnotationsToCollection(anns []Annotation, img Image, remap map[int32]int32, numCategories int, shape inst.ShapeFormat) (*inst.Collection, error) {
	list := make([]inst.Instance, 0, len(anns))
	for _, a := range anns {
		in, err := toInstance(a.CategoryID, a.BBox, 1, &a.Segmentation, img, remap, shape)
		if err != nil {
			return nil, fmt.Errorf("annotation %v: %w", a.ID, err)
		}
		list = append(list, in)
	}
	return inst.FromInstances(numCategories, shape, list)
}

// ResultsToCollection converts the predictions for one image
func ResultsToCollection(results []Result, img Image, remap map[int32]int32, numCategories int, shape inst.ShapeFormat) (*inst.Collection, error) {
	list := make([]inst.Instance, 0, len(results))
	for i, r := range results {
		in, err := toInstance(r.CategoryID, r.BBox, r.Score, r.Segmentation, img, remap, shape)
		if err != nil {
			return nil, fmt.Errorf("result %v of image %v: %w", i, img.ID, err)
		}
		list = append(list, in)
	}
	return inst.FromInstances(numCategories, shape, list)
}

// ResultsByImage groups results by image id, preserving file order
func ResultsByImage(results []Result) map[int64][]Result {
	return lo.GroupBy(results, func(r Result) int64 { return r.ImageID })
}

func toInstance(category int32, bbox [4]float64, score float32, seg *Segmentation, img Image, remap map[int32]int32, shape inst.ShapeFormat) (inst.Instance, error) {
	cat, err := remapID(remap, category)
	if err != nil {
		return inst.Instance{}, err
	}
	box, err := geom.BoxFromCOCO(bbox)
	if err != nil {
		return inst.Instance{}, err
	}
	in := inst.Instance{
		Confidence: score,
		Category:   cat,
		Box:        box,
	}
	if shape == inst.ShapeBoxAndMask {
		if in.Mask, err = seg.Mask(img.Height, img.Width); err != nil {
			return inst.Instance{}, err
		}
	}
	return in, nil
}

// ExportOptions controls how instances become annotations
type ExportOptions struct {
	// ShapeBox writes an empty segmentation. ShapeBoxAndMask writes polygons (or an RLE).
	Shape   inst.ShapeFormat
	UseRLE  bool // Write masks as compressed RLE instead of polygons
	Contour contour.Options
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Shape:   inst.ShapeBoxAndMask,
		Contour: contour.DefaultOptions(),
	}
}

// Builder assembles a Dataset one image at a time.
// Image and annotation ids are assigned sequentially, starting at 1.
type Builder struct {
	Dataset *Dataset

	opt       ExportOptions
	nextImage int64
	nextAnn   int64
}

// NewBuilder declares every category of v, in id order
func NewBuilder(v *vocab.Vocab, opt ExportOptions) *Builder {
	d := NewDataset()
	for _, id := range v.IDs() {
		name, _ := v.Name(id)
		d.Categories = append(d.Categories, Category{ID: id, Name: name})
	}
	return &Builder{
		Dataset:   d,
		opt:       opt,
		nextImage: 1,
		nextAnn:   1,
	}
}

// Add appends an image and its instances, and returns the new image id
func (b *Builder) Add(fileName string, height, width int, c *inst.Collection) (int64, error) {
	if b.opt.Shape == inst.ShapeBoxAndMask && !c.HasMasks() {
		return 0, fmt.Errorf("%w: segmentation export needs masks, but collection is %v", geom.ErrUnsupportedShapeFormat, c.Format())
	}
	img := Image{
		ID:       b.nextImage,
		Height:   height,
		Width:    width,
		FileName: fileName,
	}
	anns := make([]Annotation, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		in := c.At(i)
		a := Annotation{
			ID:         b.nextAnn + int64(i),
			ImageID:    img.ID,
			CategoryID: in.Category,
			BBox:       in.Box.COCO(),
			Area:       float64(in.Box.Area()),
		}
		if b.opt.Shape == inst.ShapeBoxAndMask {
			seg, area, err := b.segmentation(in.Mask, height, width)
			if err != nil {
				return 0, fmt.Errorf("%v instance %v: %w", fileName, i, err)
			}
			a.Segmentation = seg
			a.Area = area
		}
		anns = append(anns, a)
	}
	b.Dataset.Images = append(b.Dataset.Images, img)
	b.Dataset.Annotations = append(b.Dataset.Annotations, anns...)
	b.nextImage++
	b.nextAnn += int64(len(anns))
	return img.ID, nil
}

// segmentation returns the segmentation of a mask, and the area that a reader will
// get when it rasterizes that segmentation.
func (b *Builder) segmentation(m *mask.Mask, height, width int) (Segmentation, float64, error) {
	if b.opt.UseRLE {
		r := rle.Encode(m)
		return Segmentation{RLE: r}, float64(r.Area()), nil
	}
	rings, err := contour.FromMask(m, b.opt.Contour)
	if err != nil {
		return Segmentation{}, 0, err
	}
	r, err := rle.FromPolygons(rings, height, width)
	if err != nil {
		return Segmentation{}, 0, err
	}
	seg := Segmentation{}
	for _, ring := range rings {
		seg.Polygons = append(seg.Polygons, ring.Flat())
	}
	return seg, float64(r.Area()), nil
}

// CollectionToResults converts predictions into results file entries.
// Masks, when present, are written as RLE.
func CollectionToResults(c *inst.Collection, imageID int64) []Result {
	results := make([]Result, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		in := c.At(i)
		r := Result{
			ImageID:    imageID,
			CategoryID: in.Category,
			BBox:       in.Box.COCO(),
			Score:      in.Confidence,
		}
		if in.Mask != nil {
			r.Segmentation = &Segmentation{RLE: rle.Encode(in.Mask)}
		}
		results = append(results, r)
	}
	return results
}
