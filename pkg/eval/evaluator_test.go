package eval

import (
	"testing"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func collection(t *testing.T, conf []float32, cats []int32, boxes []geom.Box) *inst.Collection {
	c, err := inst.New(3, inst.ShapeBox, conf, cats, boxes, nil)
	require.NoError(t, err)
	return c
}

func TestEvaluator(t *testing.T) {
	images := []ImagePair{
		{
			Name:  "a",
			Truth: collection(t, []float32{1, 1}, []int32{0, 1}, []geom.Box{box(0, 0, 10, 10), box(50, 50, 60, 60)}),
			// the category 1 prediction overlaps the category 0 truth, but that's not a match
			Pred: collection(t, []float32{0.9, 0.6, 0.8}, []int32{0, 1, 1}, []geom.Box{box(1, 1, 10, 10), box(0, 0, 10, 10), box(50, 50, 60, 61)}),
		},
		{
			Name:  "b",
			Truth: collection(t, []float32{1}, []int32{0}, []geom.Box{box(20, 20, 40, 40)}),
			Pred:  collection(t, []float32{0.7, 0.95}, []int32{0, 2}, []geom.Box{box(100, 100, 110, 110), box(0, 0, 5, 5)}),
		},
	}
	for _, threads := range []int{1, 4} {
		e := NewEvaluator(logs.NewTestingLog(t))
		e.NumThreads = threads
		res, err := e.Evaluate(images)
		require.NoError(t, err)
		require.Equal(t, 3, len(res.Curves))

		// category 0: 0.9 TP, 0.7 FP, 2 ground truths
		c0 := res.Curves[0]
		require.Equal(t, 2, c0.NumGT)
		require.Equal(t, []bool{true, false}, c0.TruePositive)
		// the envelope runs from (0.5, 0.5) down to the (1, 0) padding
		require.InDelta(t, 0.625, c0.AP, 1e-6)

		// category 1: 0.8 TP, 0.6 FP
		c1 := res.Curves[1]
		require.Equal(t, []float32{0.8, 0.6}, c1.Confidences)
		require.Equal(t, []bool{true, false}, c1.TruePositive)
		require.InDelta(t, 1.0, c1.AP, 1e-6)

		// category 2: predictions only, excluded
		require.Equal(t, 0, res.Curves[2].NumGT)
		require.InDelta(t, 0.8125, res.MAP.MAP, 1e-6)
	}
}

func TestEvaluatorMasks(t *testing.T) {
	truth := collection(t, []float32{1}, []int32{0}, []geom.Box{box(0, 0, 10, 10)})
	pred := collection(t, []float32{0.9}, []int32{0}, []geom.Box{box(0, 0, 10, 9)})
	e := NewEvaluator(logs.NewTestingLog(t))
	e.Shape = inst.ShapeBoxAndMask

	_, err := e.Evaluate([]ImagePair{{Name: "x", Truth: truth, Pred: pred}})
	require.ErrorIs(t, err, geom.ErrUnsupportedShapeFormat)

	res, err := e.Evaluate([]ImagePair{{Name: "x", Truth: truth.WithBoxMasks(20, 20), Pred: pred.WithBoxMasks(20, 20)}})
	require.NoError(t, err)
	require.InDelta(t, 1.0, res.MAP.MAP, 1e-6)

	// IoU 0.9 is not enough at a threshold of 0.95
	e.Threshold = 0.95
	res, err = e.Evaluate([]ImagePair{{Name: "x", Truth: truth.WithBoxMasks(20, 20), Pred: pred.WithBoxMasks(20, 20)}})
	require.NoError(t, err)
	require.InDelta(t, 0.0, res.MAP.MAP, 1e-6)
}

func TestEvaluatorMissingCollection(t *testing.T) {
	truth := collection(t, []float32{1}, []int32{0}, []geom.Box{box(0, 0, 10, 10)})
	e := NewEvaluator(logs.NewTestingLog(t))
	_, err := e.Evaluate([]ImagePair{{Name: "a", Truth: truth}})
	require.ErrorIs(t, err, geom.ErrInvariantViolation)
	_, err = e.Evaluate([]ImagePair{{Name: "b", Pred: truth}})
	require.ErrorIs(t, err, geom.ErrInvariantViolation)
}
