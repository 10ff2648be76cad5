package eval

import (
	"fmt"
	"math"
	"slices"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/stats"
)

// PrecRecTable is the precision/recall curve of one category, with one row per
// prediction, ordered by descending confidence.
type PrecRecTable struct {
	NumGT           int       `json:"numGT"`
	Confidences     []float32 `json:"confidences"`
	TruePositive    []bool    `json:"truePositive"`
	CumTP           []int     `json:"cumTP"`
	Precision       []float32 `json:"precision"`
	Recall          []float32 `json:"recall"`
	InterpPrecision []float32 `json:"interpPrecision"` // Highest precision at this recall or any higher recall
	AP              float32   `json:"ap"`
}

// PrecisionRecall builds the curve of one category from every prediction of that
// category, across all images. confidences and tp must be parallel.
// The sort is stable, so predictions with equal confidence keep their input order.
func PrecisionRecall(confidences []float32, tp []bool, numGT int) (*PrecRecTable, error) {
	if len(confidences) != len(tp) {
		return nil, fmt.Errorf("%w: %v confidences but %v true positive flags", geom.ErrInvariantViolation, len(confidences), len(tp))
	}
	if numGT < 0 {
		return nil, fmt.Errorf("%w: negative ground truth count", geom.ErrInvariantViolation)
	}
	n := len(confidences)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case confidences[a] > confidences[b]:
			return -1
		case confidences[a] < confidences[b]:
			return 1
		}
		return 0
	})

	t := &PrecRecTable{
		NumGT:           numGT,
		Confidences:     make([]float32, n),
		TruePositive:    make([]bool, n),
		CumTP:           make([]int, n),
		Precision:       make([]float32, n),
		Recall:          make([]float32, n),
		InterpPrecision: make([]float32, n),
	}
	cum := 0
	for k, i := range order {
		if tp[i] {
			cum++
		}
		t.Confidences[k] = confidences[i]
		t.TruePositive[k] = tp[i]
		t.CumTP[k] = cum
		t.Precision[k] = float32(cum) / float32(k+1)
		if numGT > 0 {
			// Under PrecisionFocus, several predictions can hit one ground truth
			t.Recall[k] = math32.Min(1, float32(cum)/float32(numGT))
		}
	}

	// Interpolated precision is defined per recall level, so equal recalls share a value
	best := float32(0)
	for k := n - 1; k >= 0; k-- {
		best = math32.Max(best, t.Precision[k])
		t.InterpPrecision[k] = best
	}
	for k := 1; k < n; k++ {
		if t.Recall[k] == t.Recall[k-1] {
			t.InterpPrecision[k] = t.InterpPrecision[k-1]
		}
	}

	if numGT > 0 {
		t.AP = AveragePrecision(t.Recall, t.Precision)
	}
	return t, nil
}

// AveragePrecision integrates a precision/recall curve.
//
// The curve is padded with (recall 0, precision 0) at the start and (recall 1,
// precision 0) at the end. Precision is replaced by its running maximum taken
// from the end backward, which gives a non-increasing envelope, and the area
// under that envelope is found with the trapezoid rule.
func AveragePrecision(recall, precision []float32) float32 {
	n := len(recall)
	r := make([]float32, 0, n+2)
	p := make([]float32, 0, n+2)
	r = append(r, 0)
	p = append(p, 0)
	r = append(r, recall...)
	p = append(p, precision...)
	r = append(r, 1)
	p = append(p, 0)

	for k := len(p) - 2; k >= 0; k-- {
		p[k] = math32.Max(p[k], p[k+1])
	}

	ap := float32(0)
	for k := 1; k < len(r); k++ {
		ap += (r[k] - r[k-1]) * (p[k] + p[k-1]) / 2
	}
	return ap
}

// CategoryAP is one row of an MAPTable
type CategoryAP struct {
	Category int32   `json:"category"`
	Name     string  `json:"name,omitempty"`
	NumGT    int     `json:"numGT"`
	NumPred  int     `json:"numPred"`
	AP       float32 `json:"ap"`
	Included bool    `json:"included"` // False if the category has no ground truth, and so is not part of the mean
}

// MAPTable holds the per-category AP, and the mean over the categories that have ground truth
type MAPTable struct {
	Categories []CategoryAP `json:"categories"`
	MAP        float32      `json:"map"`
	// Standard deviation of AP over the included categories
	APStdDev float32 `json:"apStdDev"`
}

// MeanAP computes the mAP from per-category curves.
// A category without ground truth is reported but excluded from the mean.
// A category with ground truth but no predictions scores 0.
// If no category has ground truth, the mAP is 0.
func MeanAP(curves map[int32]*PrecRecTable) *MAPTable {
	ids := make([]int32, 0, len(curves))
	for id := range curves {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	table := &MAPTable{}
	aps := []float32{}
	for _, id := range ids {
		c := curves[id]
		row := CategoryAP{
			Category: id,
			NumGT:    c.NumGT,
			NumPred:  len(c.Confidences),
			Included: c.NumGT > 0,
		}
		if row.Included {
			row.AP = c.AP
			aps = append(aps, c.AP)
		}
		table.Categories = append(table.Categories, row)
	}
	if len(aps) != 0 {
		mean, variance := stats.MeanVar(aps)
		table.MAP = float32(mean)
		table.APStdDev = float32(math.Sqrt(variance))
	}
	return table
}
