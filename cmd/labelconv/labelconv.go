package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/labelkit/pkg/dataset"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// loadVocab reads a class list. "coco" means the built-in COCO-80 table.
func loadVocab(filename string) (*vocab.Vocab, error) {
	if filename == "coco" {
		return vocab.COCO(), nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return vocab.LoadYAML(filename)
	}
	return vocab.LoadClassFile(filename)
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	formats := []string{"labelme", "coco", "yolo"}
	parser := argparse.NewParser("labelconv", "Convert an object detection dataset between LabelMe, COCO and YOLO")
	from := parser.Selector("f", "from", formats, &argparse.Options{Help: "Input format", Required: true})
	to := parser.Selector("t", "to", formats, &argparse.Options{Help: "Output format", Required: true})
	input := parser.String("i", "input", &argparse.Options{Help: "LabelMe directory, COCO annotation file, or YOLO root directory (with images/ and labels/)", Required: true})
	imageDir := parser.String("", "images", &argparse.Options{Help: "COCO image directory (default: directory of the annotation file)"})
	output := parser.String("o", "output", &argparse.Options{Help: "Output directory", Required: true})
	classes := parser.String("c", "classes", &argparse.Options{Help: "Class file (one name per line), YAML file, or 'coco'. Optional for COCO input."})
	shape := parser.Selector("s", "shape", []string{"box", "mask"}, &argparse.Options{Help: "Convert boxes only, or boxes and masks", Default: "mask"})
	mergeGroups := parser.Flag("", "merge-groups", &argparse.Options{Help: "Merge LabelMe shapes that share a group_id into one instance"})
	useRLE := parser.Flag("", "rle", &argparse.Options{Help: "Write COCO masks as RLE instead of polygons"})
	simplify := parser.Float("", "simplify", &argparse.Options{Help: "Polygon simplification tolerance, as a fraction of the perimeter", Default: 0.001})
	noImages := parser.Flag("", "no-images", &argparse.Options{Help: "Don't copy images into the output"})
	skipInvalid := parser.Flag("", "skip-invalid", &argparse.Options{Help: "Skip label files that fail to load, instead of aborting"})
	err = parser.Parse(os.Args)
	if err != nil {
		logger.Errorf("%v", parser.Usage(err))
		os.Exit(1)
	}

	var v *vocab.Vocab
	if *classes != "" {
		v, err = loadVocab(*classes)
		if err != nil {
			logger.Errorf("Failed to load classes from '%v': %v", *classes, err)
			os.Exit(1)
		}
	} else if *from != "coco" {
		logger.Errorf("--classes is required for %v input", *from)
		os.Exit(1)
	}

	loadOpt := dataset.LoadOptions{
		Shape:       inst.ShapeBox,
		MergeGroups: *mergeGroups,
		SkipInvalid: *skipInvalid,
	}
	if *shape == "mask" {
		loadOpt.Shape = inst.ShapeBoxAndMask
	}

	var items []dataset.Item
	switch *from {
	case "labelme":
		items, err = dataset.LoadLabelMe(logger, *input, v, loadOpt)
	case "coco":
		if *imageDir == "" {
			*imageDir = filepath.Dir(*input)
		}
		items, v, err = dataset.LoadCOCO(logger, *input, *imageDir, v, loadOpt)
	case "yolo":
		items, err = dataset.LoadYOLO(logger, filepath.Join(*input, "images"), filepath.Join(*input, "labels"), v, loadOpt)
	}
	if err != nil {
		logger.Errorf("Failed to load %v dataset: %v", *from, err)
		os.Exit(1)
	}

	outFormat, err := dataset.ParseFormat(*to)
	check(err)
	exportOpt := dataset.DefaultExportOptions()
	exportOpt.Shape = loadOpt.Shape
	exportOpt.UseRLE = *useRLE
	exportOpt.Contour.SimplifyFactor = *simplify

	exporter := &dataset.Exporter{
		Log:        logger,
		Vocab:      v,
		Dir:        *output,
		CopyImages: !*noImages,
	}
	if err := exporter.Export(outFormat, items, exportOpt); err != nil {
		logger.Errorf("Failed to write %v dataset: %v", *to, err)
		os.Exit(1)
	}
}
