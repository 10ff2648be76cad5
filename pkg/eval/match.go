package eval

import (
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/gen"
)

// Policy decides how predictions and ground truths are paired up
type Policy int

const (
	// Every prediction and every ground truth is used at most once
	OneToOne Policy = iota
	// A ground truth may satisfy many predictions
	PrecisionFocus
	// A prediction may satisfy many ground truths
	RecallFocus
)

func (p Policy) String() string {
	switch p {
	case OneToOne:
		return "one-to-one"
	case PrecisionFocus:
		return "precision"
	case RecallFocus:
		return "recall"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy is the inverse of Policy.String
func ParsePolicy(s string) (Policy, error) {
	for _, p := range []Policy{OneToOne, PrecisionFocus, RecallFocus} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown matching policy '%v'", s)
}

// BoolMatrix is a dense row-major bool matrix
type BoolMatrix struct {
	Rows int
	Cols int
	Data []bool
}

func NewBoolMatrix(rows, cols int) *BoolMatrix {
	return &BoolMatrix{
		Rows: rows,
		Cols: cols,
		Data: make([]bool, rows*cols),
	}
}

func (m *BoolMatrix) At(r, c int) bool {
	return m.Data[r*m.Cols+c]
}

func (m *BoolMatrix) Set(r, c int, v bool) {
	m.Data[r*m.Cols+c] = v
}

// AnyInRow is true if any element of row r is set
func (m *BoolMatrix) AnyInRow(r int) bool {
	for _, v := range m.Data[r*m.Cols : (r+1)*m.Cols] {
		if v {
			return true
		}
	}
	return false
}

// Match is the outcome of matching one image (or one category of one image).
// Which fields are populated depends on the policy:
//
//	OneToOne:       PredToGT, GTToPred
//	PrecisionFocus: PredToGT, GTHits (|gt| x |pred|)
//	RecallFocus:    GTToPred, PredHits (|pred| x |gt|)
//
// Index slices hold -1 where there is no match.
type Match struct {
	Policy   Policy
	NumGT    int
	NumPred  int
	PredToGT []int
	GTToPred []int
	GTHits   *BoolMatrix
	PredHits *BoolMatrix
}

func minusOnes(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = -1
	}
	return s
}

// MatchScores pairs up ground truths (rows of scores) with predictions (columns).
// A pair is only eligible if its score is strictly greater than threshold.
// When several candidates share the best score, the lowest index wins.
func MatchScores(scores *Matrix, threshold float32, policy Policy) (*Match, error) {
	switch policy {
	case OneToOne:
		return MatchOneToOne(scores, threshold), nil
	case PrecisionFocus:
		return MatchPrecisionFocus(scores, threshold), nil
	case RecallFocus:
		return MatchRecallFocus(scores, threshold), nil
	}
	return nil, fmt.Errorf("unknown matching policy %v", policy)
}

// MatchOneToOne visits predictions in index order. Each one claims the highest
// scoring ground truth that has not yet been claimed. To give confident
// predictions first pick, sort the predictions before computing scores.
func MatchOneToOne(scores *Matrix, threshold float32) *Match {
	m := &Match{
		Policy:   OneToOne,
		NumGT:    scores.Rows,
		NumPred:  scores.Cols,
		PredToGT: minusOnes(scores.Cols),
		GTToPred: minusOnes(scores.Rows),
	}
	for p := 0; p < scores.Cols; p++ {
		best := -1
		var bestScore float32
		for g := 0; g < scores.Rows; g++ {
			if m.GTToPred[g] != -1 {
				continue
			}
			if s := scores.At(g, p); s > threshold && (best == -1 || s > bestScore) {
				best = g
				bestScore = s
			}
		}
		if best != -1 {
			m.PredToGT[p] = best
			m.GTToPred[best] = p
		}
	}
	return m
}

// MatchPrecisionFocus lets each prediction independently claim its best ground truth
func MatchPrecisionFocus(scores *Matrix, threshold float32) *Match {
	m := &Match{
		Policy:   PrecisionFocus,
		NumGT:    scores.Rows,
		NumPred:  scores.Cols,
		PredToGT: minusOnes(scores.Cols),
		GTHits:   NewBoolMatrix(scores.Rows, scores.Cols),
	}
	for p := 0; p < scores.Cols; p++ {
		best := argmaxColumn(scores, p)
		if best != -1 && scores.At(best, p) > threshold {
			m.PredToGT[p] = best
			m.GTHits.Set(best, p, true)
		}
	}
	return m
}

// MatchRecallFocus lets each ground truth independently claim its best prediction
func MatchRecallFocus(scores *Matrix, threshold float32) *Match {
	m := &Match{
		Policy:   RecallFocus,
		NumGT:    scores.Rows,
		NumPred:  scores.Cols,
		GTToPred: minusOnes(scores.Rows),
		PredHits: NewBoolMatrix(scores.Cols, scores.Rows),
	}
	for g := 0; g < scores.Rows; g++ {
		best := argmaxRow(scores, g)
		if best != -1 && scores.At(g, best) > threshold {
			m.GTToPred[g] = best
			m.PredHits.Set(best, g, true)
		}
	}
	return m
}

// argmaxColumn returns the first row holding the maximum of column c, or -1 if there are no rows
func argmaxColumn(scores *Matrix, c int) int {
	return gen.ArgMaxFunc(scores.Rows, func(r int) float32 { return scores.At(r, c) })
}

// argmaxRow returns the first column holding the maximum of row r, or -1 if there are no columns
func argmaxRow(scores *Matrix, r int) int {
	return gen.ArgMax(scores.Data[r*scores.Cols : (r+1)*scores.Cols])
}

// TruePositives flags each prediction that matched at least one ground truth
func (m *Match) TruePositives() []bool {
	tp := make([]bool, m.NumPred)
	for p := range tp {
		if m.PredToGT != nil {
			tp[p] = m.PredToGT[p] >= 0
		} else {
			tp[p] = m.PredHits.AnyInRow(p)
		}
	}
	return tp
}

// FalseNegatives flags each ground truth that no prediction matched
func (m *Match) FalseNegatives() []bool {
	fn := make([]bool, m.NumGT)
	for g := range fn {
		if m.GTToPred != nil {
			fn[g] = m.GTToPred[g] < 0
		} else {
			fn[g] = !m.GTHits.AnyInRow(g)
		}
	}
	return fn
}
