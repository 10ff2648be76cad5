// Package dataset reads and writes whole annotated datasets: a set of images,
// each with an Instance Collection, stored as LabelMe, COCO or YOLO.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/labelkit/pkg/contour"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/logs"
	"github.com/samber/lo"
)

// Format is an on-disk dataset layout
type Format int

const (
	FormatLabelMe Format = iota
	FormatCOCO
	FormatYOLO
)

func (f Format) String() string {
	switch f {
	case FormatLabelMe:
		return "labelme"
	case FormatCOCO:
		return "coco"
	case FormatYOLO:
		return "yolo"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "labelme":
		return FormatLabelMe, nil
	case "coco":
		return FormatCOCO, nil
	case "yolo":
		return FormatYOLO, nil
	}
	return 0, fmt.Errorf("unknown dataset format '%v' (expected labelme, coco or yolo)", s)
}

// Item is one image of a dataset
type Item struct {
	ID        int64  // COCO image id, or the item's index for other formats
	ImagePath string // Path of the source image
	Height    int
	Width     int
	Instances *inst.Collection
}

// LoadOptions controls how label files become collections
type LoadOptions struct {
	Shape       inst.ShapeFormat
	MergeGroups bool // LabelMe only. See labelme.LoadOptions.
	// Log and skip files that fail to load, instead of failing the whole dataset
	SkipInvalid bool
}

// ExportOptions are the format-neutral export settings
type ExportOptions struct {
	Shape   inst.ShapeFormat // ShapeBox writes boxes, ShapeBoxAndMask writes polygons (or RLE)
	Contour contour.Options
	UseRLE  bool // COCO only. Write masks as RLE instead of polygons.
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Shape:   inst.ShapeBoxAndMask,
		Contour: contour.DefaultOptions(),
	}
}

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

func isImage(filename string) bool {
	return lo.Contains(imageExtensions, strings.ToLower(filepath.Ext(filename)))
}

// ImageSize decodes an image file, and returns its dimensions
func ImageSize(filename string) (height, width int, err error) {
	img, err := cimg.ReadFile(filename)
	if err != nil {
		return 0, 0, fmt.Errorf("Failed to read image '%v': %w", filename, err)
	}
	return img.Height, img.Width, nil
}

// skipOrFail implements the SkipInvalid policy
func skipOrFail(log logs.Log, opt LoadOptions, filename string, err error) error {
	if !opt.SkipInvalid {
		return fmt.Errorf("%v: %w", filename, err)
	}
	log.Warnf("Skipping %v: %v", filename, err)
	return nil
}

// exportName is the name of item i's image in an exported dataset
func exportName(i int, imagePath string) string {
	return fmt.Sprintf("%06d%v", i, strings.ToLower(filepath.Ext(imagePath)))
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
