package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/labelkit/pkg/labelformat/coco"
	"github.com/cyclopcam/labelkit/pkg/labelformat/labelme"
	"github.com/cyclopcam/labelkit/pkg/labelformat/yolo"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/cyclopcam/logs"
	"github.com/samber/lo"
)

// listFiles returns the sorted names of the files in dir that pass keep
func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && keep(e.Name())
	})
	return lo.Map(files, func(e os.DirEntry, _ int) string { return e.Name() }), nil
}

// LoadLabelMe reads every .json file in dir.
// Each file's imagePath is resolved relative to dir.
func LoadLabelMe(log logs.Log, dir string, v *vocab.Vocab, opt LoadOptions) ([]Item, error) {
	names, err := listFiles(dir, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ".json")
	})
	if err != nil {
		return nil, err
	}
	items := []Item{}
	for _, name := range names {
		filename := filepath.Join(dir, name)
		item, err := loadLabelMeItem(filename, dir, v, opt)
		if err != nil {
			if err := skipOrFail(log, opt, filename, err); err != nil {
				return nil, err
			}
			continue
		}
		item.ID = int64(len(items))
		items = append(items, item)
	}
	log.Infof("Loaded %v LabelMe files from %v", len(items), dir)
	return items, nil
}

func loadLabelMeItem(filename, dir string, v *vocab.Vocab, opt LoadOptions) (Item, error) {
	f, err := labelme.Load(filename)
	if err != nil {
		return Item{}, err
	}
	c, err := f.ToCollection(v, labelme.LoadOptions{Shape: opt.Shape, MergeGroups: opt.MergeGroups})
	if err != nil {
		return Item{}, err
	}
	return Item{
		ImagePath: filepath.Join(dir, f.ImagePath),
		Height:    f.ImageHeight,
		Width:     f.ImageWidth,
		Instances: c,
	}, nil
}

// LoadCOCO reads a COCO annotation file. Image file names are resolved relative to imageDir.
// If v is nil, the file's own categories are used, and the vocabulary is returned.
// Otherwise, the file's category ids are translated into the ids of v.
func LoadCOCO(log logs.Log, filename, imageDir string, v *vocab.Vocab, opt LoadOptions) ([]Item, *vocab.Vocab, error) {
	d, err := coco.Load(filename)
	if err != nil {
		return nil, nil, err
	}
	var remap map[int32]int32
	if v == nil {
		if v, err = d.Vocab(); err != nil {
			return nil, nil, err
		}
	} else if remap, err = d.Remap(v); err != nil {
		return nil, nil, err
	}
	byImage := d.AnnotationsByImage()
	items := make([]Item, 0, len(d.Images))
	for _, img := range d.Images {
		c, err := coco.AnnotationsToCollection(byImage[img.ID], img, remap, v.Len(), opt.Shape)
		if err != nil {
			if err := skipOrFail(log, opt, img.FileName, err); err != nil {
				return nil, nil, err
			}
			continue
		}
		items = append(items, Item{
			ID:        img.ID,
			ImagePath: filepath.Join(imageDir, img.FileName),
			Height:    img.Height,
			Width:     img.Width,
			Instances: c,
		})
	}
	log.Infof("Loaded %v images and %v annotations from %v", len(items), len(d.Annotations), filename)
	return items, v, nil
}

// LoadYOLO pairs every image in imageDir with the label file of the same name in labelDir.
// Images without a label file are skipped. The image size is read from the image itself,
// because YOLO label files don't record it.
func LoadYOLO(log logs.Log, imageDir, labelDir string, v *vocab.Vocab, opt LoadOptions) ([]Item, error) {
	images, err := listFiles(imageDir, isImage)
	if err != nil {
		return nil, err
	}
	items := []Item{}
	for _, name := range images {
		imagePath := filepath.Join(imageDir, name)
		labelPath := filepath.Join(labelDir, stem(name)+".txt")
		if _, err := os.Stat(labelPath); errors.Is(err, os.ErrNotExist) {
			log.Debugf("No labels for %v", imagePath)
			continue
		}
		item, err := loadYOLOItem(imagePath, labelPath, v, opt)
		if err != nil {
			if err := skipOrFail(log, opt, labelPath, err); err != nil {
				return nil, err
			}
			continue
		}
		item.ID = int64(len(items))
		items = append(items, item)
	}
	log.Infof("Loaded %v YOLO label files from %v", len(items), labelDir)
	return items, nil
}

func loadYOLOItem(imagePath, labelPath string, v *vocab.Vocab, opt LoadOptions) (Item, error) {
	height, width, err := ImageSize(imagePath)
	if err != nil {
		return Item{}, err
	}
	lines, err := yolo.Load(labelPath)
	if err != nil {
		return Item{}, err
	}
	c, err := yolo.ToCollection(lines, height, width, v, opt.Shape)
	if err != nil {
		return Item{}, err
	}
	return Item{
		ImagePath: imagePath,
		Height:    height,
		Width:     width,
		Instances: c,
	}, nil
}
