// Package labelme reads and writes LabelMe annotation files
package labelme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// Version is written into every exported file
const Version = "5.4.1"

const (
	ShapePolygon   = "polygon"
	ShapeRectangle = "rectangle"
)

// Shape is one entry of a LabelMe file's shapes list
type Shape struct {
	Label     string          `json:"label"`
	Points    [][2]float64    `json:"points"`
	GroupID   *int            `json:"group_id"`
	ShapeType string          `json:"shape_type"`
	Flags     map[string]bool `json:"flags"`
}

// File is a LabelMe annotation file.
// ImageData is never read, and always written as null.
type File struct {
	Version     string          `json:"version"`
	Flags       map[string]bool `json:"flags"`
	Shapes      []Shape         `json:"shapes"`
	ImagePath   string          `json:"imagePath"`
	ImageData   *string         `json:"imageData"`
	ImageHeight int             `json:"imageHeight"`
	ImageWidth  int             `json:"imageWidth"`
}

// NewFile returns an empty file for an image
func NewFile(imagePath string, height, width int) *File {
	return &File{
		Version:     Version,
		Flags:       map[string]bool{},
		Shapes:      []Shape{},
		ImagePath:   filepath.Base(imagePath),
		ImageHeight: height,
		ImageWidth:  width,
	}
}

// Parse decodes a LabelMe file from JSON
func Parse(raw []byte) (*File, error) {
	f := &File{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
	}
	// Large files often carry an embedded copy of the image, which we have no use for
	f.ImageData = nil
	if f.ImageHeight <= 0 || f.ImageWidth <= 0 {
		return nil, fmt.Errorf("%w: image size %vx%v", geom.ErrFormat, f.ImageWidth, f.ImageHeight)
	}
	return f, nil
}

// Load reads a LabelMe file from disk
func Load(filename string) (*File, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return f, nil
}

// Save writes the file as indented JSON
func (f *File) Save(filename string) error {
	out := *f
	out.ImageData = nil
	if out.Flags == nil {
		out.Flags = map[string]bool{}
	}
	raw, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, raw, 0644)
}

// Groups splits the shapes into Shape Groups.
// Shapes that share a group_id form one group, in order of first appearance.
// Every shape without a group_id is a group of its own.
func (f *File) Groups() [][]Shape {
	groups := [][]Shape{}
	byID := map[int]int{}
	for _, s := range f.Shapes {
		if s.GroupID == nil {
			groups = append(groups, []Shape{s})
			continue
		}
		if g, ok := byID[*s.GroupID]; ok {
			groups[g] = append(groups[g], s)
		} else {
			byID[*s.GroupID] = len(groups)
			groups = append(groups, []Shape{s})
		}
	}
	return groups
}

// Ring returns the shape's outline. A rectangle becomes its four corners.
func (s *Shape) Ring() (geom.Ring, error) {
	switch s.ShapeType {
	case ShapePolygon, "":
		return geom.RingFromPairs(s.Points), nil
	case ShapeRectangle:
		b, err := s.Box()
		if err != nil {
			return nil, err
		}
		x1, y1, x2, y2 := float64(b.X1), float64(b.Y1), float64(b.X2), float64(b.Y2)
		return geom.Ring{{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2}}, nil
	}
	return nil, fmt.Errorf("%w: shape type '%v'", geom.ErrFormat, s.ShapeType)
}

// Box returns the shape's bounding box
func (s *Shape) Box() (geom.Box, error) {
	switch s.ShapeType {
	case ShapePolygon, "":
		return geom.RingFromPairs(s.Points).BoundingBox()
	case ShapeRectangle:
		return geom.BoxFromLabelMe(s.Points)
	}
	return geom.Box{}, fmt.Errorf("%w: shape type '%v'", geom.ErrFormat, s.ShapeType)
}
