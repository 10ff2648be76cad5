package eval

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/perfstats"
	"github.com/cyclopcam/logs"
	"golang.org/x/sync/errgroup"
)

const DefaultThreshold = 0.5

// ImagePair is the ground truth and the predictions for one image
type ImagePair struct {
	Name  string
	Truth *inst.Collection
	Pred  *inst.Collection
}

// Evaluator scores a whole dataset.
//
// Images are independent, so they are matched in parallel. Within an image, the
// instances are split by category before scoring, so a prediction can only ever
// match ground truth of its own category. The precision/recall curves are only
// built once every image has been matched.
type Evaluator struct {
	Log             logs.Log
	Mode            Mode
	Shape           inst.ShapeFormat // Score with boxes, or with masks
	Threshold       float32          // A pair matches when its score is strictly greater than this
	Policy          Policy
	NumThreads      int  // Zero means runtime.NumCPU()
	SortPredictions bool // Sort each image's predictions by descending confidence before matching

	statsLock     sync.Mutex
	imageTimes    perfstats.TimeAccumulator
	predsPerImage perfstats.Accumulator[int64]
}

// NewEvaluator returns an evaluator with COCO-like defaults: box IoU > 0.5, one-to-one matching
func NewEvaluator(log logs.Log) *Evaluator {
	return &Evaluator{
		Log:             log,
		Mode:            ModeIoU,
		Shape:           inst.ShapeBox,
		Threshold:       DefaultThreshold,
		Policy:          OneToOne,
		SortPredictions: true,
	}
}

// Result of a whole evaluation
type Result struct {
	Curves map[int32]*PrecRecTable `json:"curves"`
	MAP    *MAPTable               `json:"map"`
}

// categoryTally collects the matched predictions of one category, across images
type categoryTally struct {
	confidences []float32
	tp          []bool
	numGT       int
}

type imageTally map[int32]*categoryTally

func (t imageTally) get(cat int32) *categoryTally {
	c := t[cat]
	if c == nil {
		c = &categoryTally{}
		t[cat] = c
	}
	return c
}

// Evaluate matches every image, and then computes per-category precision/recall and the mAP
func (e *Evaluator) Evaluate(images []ImagePair) (*Result, error) {
	nThreads := e.NumThreads
	if nThreads <= 0 {
		nThreads = runtime.NumCPU()
	}
	start := time.Now()
	e.statsLock.Lock()
	e.imageTimes.Reset()
	e.predsPerImage.Reset()
	e.statsLock.Unlock()

	perImage := make([]imageTally, len(images))
	var g errgroup.Group
	g.SetLimit(nThreads)
	for i := range images {
		g.Go(func() error {
			t, err := e.evaluateImage(&images[i])
			if err != nil {
				return fmt.Errorf("image '%v': %w", images[i].Name, err)
			}
			perImage[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Combine in image order, so that equal confidences always sort the same way
	all := imageTally{}
	for _, t := range perImage {
		for cat, c := range t {
			dst := all.get(cat)
			dst.confidences = append(dst.confidences, c.confidences...)
			dst.tp = append(dst.tp, c.tp...)
			dst.numGT += c.numGT
		}
	}

	result := &Result{
		Curves: map[int32]*PrecRecTable{},
	}
	for cat, c := range all {
		curve, err := PrecisionRecall(c.confidences, c.tp, c.numGT)
		if err != nil {
			return nil, err
		}
		result.Curves[cat] = curve
	}
	result.MAP = MeanAP(result.Curves)

	if e.Log != nil {
		e.Log.Infof("Evaluated %v images (%v categories, %.1f predictions per image) in %.1f seconds. Average time per image: %v. mAP = %.4f",
			len(images), len(all), e.predsPerImage.Average(), time.Since(start).Seconds(), e.imageTimes.Average(), result.MAP.MAP)
	}
	return result, nil
}

func (e *Evaluator) evaluateImage(img *ImagePair) (imageTally, error) {
	if img.Truth == nil || img.Pred == nil {
		return nil, fmt.Errorf("%w: missing ground truth or prediction collection", geom.ErrInvariantViolation)
	}
	start := time.Now()
	tally := imageTally{}
	truth := img.Truth.ByCategory()
	preds := img.Pred.ByCategory()

	for cat, gt := range truth {
		tally.get(cat).numGT += gt.Len()
	}
	for cat, pred := range preds {
		if e.SortPredictions {
			pred = pred.SortByConfidence(true)
		}
		gt := truth[cat]
		if gt == nil {
			gt = inst.Empty(img.Truth.NumCategories(), img.Truth.Format())
		}
		scores, err := Overlap(gt, pred, e.Shape, e.Mode)
		if err != nil {
			return nil, err
		}
		m, err := MatchScores(scores, e.Threshold, e.Policy)
		if err != nil {
			return nil, err
		}
		c := tally.get(cat)
		c.confidences = append(c.confidences, pred.Confidences()...)
		c.tp = append(c.tp, m.TruePositives()...)
	}

	e.statsLock.Lock()
	e.imageTimes.Time(start)
	e.predsPerImage.AddSample(int64(img.Pred.Len()))
	e.statsLock.Unlock()
	return tally, nil
}
