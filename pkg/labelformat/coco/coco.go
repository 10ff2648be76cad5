// Package coco reads and writes COCO instance annotation files, and COCO results files
package coco

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/rle"
)

type Image struct {
	ID       int64  `json:"id"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	FileName string `json:"file_name"`
}

type Category struct {
	ID            int32  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// Segmentation is either a list of polygons (flat x,y lists), or an RLE.
// An empty list means "no segmentation", which is what box-only exports write.
type Segmentation struct {
	Polygons [][]float64
	RLE      *rle.RLE
}

func (s *Segmentation) IsEmpty() bool {
	return s == nil || (len(s.Polygons) == 0 && s.RLE == nil)
}

func (s Segmentation) MarshalJSON() ([]byte, error) {
	if s.RLE != nil {
		return json.Marshal(s.RLE)
	}
	if s.Polygons == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Polygons)
}

func (s *Segmentation) UnmarshalJSON(b []byte) error {
	*s = Segmentation{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		r := &rle.RLE{}
		if err := json.Unmarshal(b, r); err != nil {
			return err
		}
		s.RLE = r
		return nil
	}
	if err := json.Unmarshal(b, &s.Polygons); err != nil {
		return fmt.Errorf("%w: segmentation: %v", geom.ErrFormat, err)
	}
	return nil
}

type Annotation struct {
	ID           int64        `json:"id"`
	ImageID      int64        `json:"image_id"`
	CategoryID   int32        `json:"category_id"`
	BBox         [4]float64   `json:"bbox"`
	Segmentation Segmentation `json:"segmentation"`
	Area         float64      `json:"area"`
	IsCrowd      int          `json:"iscrowd"`
}

// Dataset is a COCO instance annotation file
type Dataset struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Result is one entry of a COCO results file, which is how detectors publish predictions
type Result struct {
	ImageID      int64         `json:"image_id"`
	CategoryID   int32         `json:"category_id"`
	BBox         [4]float64    `json:"bbox"`
	Score        float32       `json:"score"`
	Segmentation *Segmentation `json:"segmentation,omitempty"`
}

func NewDataset() *Dataset {
	return &Dataset{
		Images:      []Image{},
		Annotations: []Annotation{},
		Categories:  []Category{},
	}
}

func Parse(raw []byte) (*Dataset, error) {
	d := NewDataset()
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
	}
	seen := map[int64]bool{}
	for _, img := range d.Images {
		if seen[img.ID] {
			return nil, fmt.Errorf("%w: duplicate image id %v", geom.ErrFormat, img.ID)
		}
		seen[img.ID] = true
		if img.Height <= 0 || img.Width <= 0 {
			return nil, fmt.Errorf("%w: image %v has size %vx%v", geom.ErrFormat, img.ID, img.Width, img.Height)
		}
	}
	return d, nil
}

func Load(filename string) (*Dataset, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return d, nil
}

func (d *Dataset) Save(filename string) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, raw, 0644)
}

// AnnotationsByImage groups the annotations by image id, preserving file order
func (d *Dataset) AnnotationsByImage() map[int64][]Annotation {
	byImage := map[int64][]Annotation{}
	for _, a := range d.Annotations {
		byImage[a.ImageID] = append(byImage[a.ImageID], a)
	}
	return byImage
}

func ParseResults(raw []byte) ([]Result, error) {
	results := []Result{}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
	}
	return results, nil
}

func LoadResults(filename string) ([]Result, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	results, err := ParseResults(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return results, nil
}

func SaveResults(filename string, results []Result) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, raw, 0644)
}
