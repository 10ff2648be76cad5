package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/labelkit/pkg/iox"
	"github.com/cyclopcam/labelkit/pkg/labelformat/coco"
	"github.com/cyclopcam/labelkit/pkg/labelformat/labelme"
	"github.com/cyclopcam/labelkit/pkg/labelformat/yolo"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/cyclopcam/logs"
	"gopkg.in/yaml.v3"
)

// Exporter writes datasets into Dir.
//
// Layouts:
//
//	LabelMe   Dir/000000.jpg, Dir/000000.json
//	COCO      Dir/annotations.json, Dir/images/000000.jpg
//	YOLO      Dir/images/000000.jpg, Dir/labels/000000.txt, Dir/data.yaml
//
// Images are renamed to their index in the dataset, so that images from
// different source directories can't collide.
type Exporter struct {
	Log        logs.Log
	Vocab      *vocab.Vocab
	Dir        string
	CopyImages bool // If false, only label files are written
}

func (e *Exporter) copyImage(item *Item, dst string) error {
	if !e.CopyImages {
		return nil
	}
	return iox.CopyFile(dst, item.ImagePath)
}

// LabelMe writes one LabelMe file per image
func (e *Exporter) LabelMe(items []Item, opt labelme.ExportOptions) error {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return err
	}
	for i := range items {
		item := &items[i]
		name := exportName(i, item.ImagePath)
		f, err := labelme.FromCollection(item.Instances, e.Vocab, name, item.Height, item.Width, opt)
		if err != nil {
			return fmt.Errorf("%v: %w", item.ImagePath, err)
		}
		if err := f.Save(filepath.Join(e.Dir, stem(name)+".json")); err != nil {
			return err
		}
		if err := e.copyImage(item, filepath.Join(e.Dir, name)); err != nil {
			return err
		}
	}
	e.Log.Infof("Wrote %v LabelMe files to %v", len(items), e.Dir)
	return nil
}

// COCO writes a single annotation file for all images
func (e *Exporter) COCO(items []Item, opt coco.ExportOptions) error {
	imageDir := filepath.Join(e.Dir, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return err
	}
	b := coco.NewBuilder(e.Vocab, opt)
	for i := range items {
		item := &items[i]
		name := exportName(i, item.ImagePath)
		if _, err := b.Add(name, item.Height, item.Width, item.Instances); err != nil {
			return fmt.Errorf("%v: %w", item.ImagePath, err)
		}
		if err := e.copyImage(item, filepath.Join(imageDir, name)); err != nil {
			return err
		}
	}
	filename := filepath.Join(e.Dir, "annotations.json")
	if err := b.Dataset.Save(filename); err != nil {
		return err
	}
	e.Log.Infof("Wrote %v images and %v annotations to %v", len(b.Dataset.Images), len(b.Dataset.Annotations), filename)
	return nil
}

// yoloDataFile is the dataset description that YOLO trainers read
type yoloDataFile struct {
	Path  string           `yaml:"path"`
	Train string           `yaml:"train"`
	Val   string           `yaml:"val"`
	Names map[int32]string `yaml:"names"`
}

// YOLO writes one label file per image, and a data.yaml with the category names
func (e *Exporter) YOLO(items []Item, opt yolo.ExportOptions) error {
	imageDir := filepath.Join(e.Dir, "images")
	labelDir := filepath.Join(e.Dir, "labels")
	for _, dir := range []string{imageDir, labelDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if !e.Vocab.IsDense() {
		e.Log.Warnf("Category ids are not 0..%v. Most YOLO trainers expect that.", e.Vocab.Len()-1)
	}
	for i := range items {
		item := &items[i]
		name := exportName(i, item.ImagePath)
		lines, err := yolo.FromCollection(item.Instances, item.Height, item.Width, opt)
		if err != nil {
			return fmt.Errorf("%v: %w", item.ImagePath, err)
		}
		if err := yolo.Save(filepath.Join(labelDir, stem(name)+".txt"), lines); err != nil {
			return err
		}
		if err := e.copyImage(item, filepath.Join(imageDir, name)); err != nil {
			return err
		}
	}
	data := yoloDataFile{
		Path:  ".",
		Train: "images",
		Val:   "images",
		Names: map[int32]string{},
	}
	for _, id := range e.Vocab.IDs() {
		data.Names[id], _ = e.Vocab.Name(id)
	}
	raw, err := yaml.Marshal(&data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(e.Dir, "data.yaml"), raw, 0644); err != nil {
		return err
	}
	e.Log.Infof("Wrote %v YOLO label files to %v", len(items), labelDir)
	return nil
}

// Export writes the items in the given format
func (e *Exporter) Export(format Format, items []Item, opt ExportOptions) error {
	switch format {
	case FormatLabelMe:
		return e.LabelMe(items, labelme.ExportOptions{Shape: opt.Shape, Contour: opt.Contour})
	case FormatCOCO:
		return e.COCO(items, coco.ExportOptions{Shape: opt.Shape, Contour: opt.Contour, UseRLE: opt.UseRLE})
	case FormatYOLO:
		return e.YOLO(items, yolo.ExportOptions{Shape: opt.Shape, Contour: opt.Contour})
	}
	return fmt.Errorf("unknown dataset format %v", format)
}
