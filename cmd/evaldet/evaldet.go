package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/labelkit/pkg/dataset"
	"github.com/cyclopcam/labelkit/pkg/eval"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/labelformat/coco"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("evaldet", "Score COCO-format predictions against COCO ground truth")
	gtFile := parser.String("g", "gt", &argparse.Options{Help: "COCO ground truth annotation file", Required: true})
	predFile := parser.String("p", "pred", &argparse.Options{Help: "COCO results file with the predictions", Required: true})
	iouType := parser.Selector("", "iou-type", []string{"bbox", "segm"}, &argparse.Options{Help: "Score boxes or masks", Default: "bbox"})
	mode := parser.Selector("m", "mode", []string{"iou", "iof"}, &argparse.Options{Help: "Overlap score: intersection over union, or over the ground truth area", Default: "iou"})
	threshold := parser.Float("t", "threshold", &argparse.Options{Help: "A pair matches when its overlap is greater than this", Default: eval.DefaultThreshold})
	policy := parser.Selector("", "policy", []string{"one-to-one", "precision", "recall"}, &argparse.Options{Help: "Matching policy", Default: "one-to-one"})
	threads := parser.Int("j", "threads", &argparse.Options{Help: "Number of worker threads (0 = number of CPUs)", Default: 0})
	output := parser.String("o", "output", &argparse.Options{Help: "Write the curves and mAP table to this JSON file"})
	err = parser.Parse(os.Args)
	if err != nil {
		logger.Errorf("%v", parser.Usage(err))
		os.Exit(1)
	}

	shape := inst.ShapeBox
	if *iouType == "segm" {
		shape = inst.ShapeBoxAndMask
	}

	items, v, err := dataset.LoadCOCO(logger, *gtFile, filepath.Dir(*gtFile), nil, dataset.LoadOptions{Shape: shape})
	if err != nil {
		logger.Errorf("Failed to load ground truth: %v", err)
		os.Exit(1)
	}
	results, err := coco.LoadResults(*predFile)
	if err != nil {
		logger.Errorf("Failed to load predictions: %v", err)
		os.Exit(1)
	}

	pairs, err := makePairs(logger, items, results, v, shape)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	evaluator := eval.NewEvaluator(logger)
	evaluator.Shape = shape
	evaluator.Threshold = float32(*threshold)
	evaluator.NumThreads = *threads
	if *mode == "iof" {
		evaluator.Mode = eval.ModeIoF
	}
	evaluator.Policy, err = eval.ParsePolicy(*policy)
	check(err)

	result, err := evaluator.Evaluate(pairs)
	if err != nil {
		logger.Errorf("Evaluation failed: %v", err)
		os.Exit(1)
	}
	for i := range result.MAP.Categories {
		row := &result.MAP.Categories[i]
		row.Name, _ = v.Name(row.Category)
	}
	fmt.Print(formatTable(result.MAP))

	if *output != "" {
		raw, err := json.MarshalIndent(result, "", "  ")
		check(err)
		check(os.WriteFile(*output, raw, 0644))
	}
}

// makePairs joins the predictions to the ground truth images by image id
func makePairs(log logs.Log, items []dataset.Item, results []coco.Result, v *vocab.Vocab, shape inst.ShapeFormat) ([]eval.ImagePair, error) {
	byImage := coco.ResultsByImage(results)
	pairs := make([]eval.ImagePair, 0, len(items))
	for _, item := range items {
		img := coco.Image{ID: item.ID, Height: item.Height, Width: item.Width}
		pred, err := coco.ResultsToCollection(byImage[item.ID], img, nil, v.Len(), shape)
		if err != nil {
			return nil, err
		}
		delete(byImage, item.ID)
		pairs = append(pairs, eval.ImagePair{
			Name:  filepath.Base(item.ImagePath),
			Truth: item.Instances,
			Pred:  pred,
		})
	}
	if len(byImage) != 0 {
		log.Warnf("Ignoring predictions for %v images that are not in the ground truth", len(byImage))
	}
	return pairs, nil
}

func formatTable(table *eval.MAPTable) string {
	s := strings.Builder{}
	fmt.Fprintf(&s, "%-6v %-20v %8v %8v %8v\n", "id", "category", "gt", "pred", "AP")
	for _, row := range table.Categories {
		ap := fmt.Sprintf("%.4f", row.AP)
		if !row.Included {
			ap = "-"
		}
		fmt.Fprintf(&s, "%-6v %-20v %8v %8v %8v\n", row.Category, row.Name, row.NumGT, row.NumPred, ap)
	}
	fmt.Fprintf(&s, "mAP = %.4f (AP std dev %.4f)\n", table.MAP, table.APStdDev)
	return s.String()
}
