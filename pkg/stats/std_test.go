package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeanVar(t *testing.T) {
	mean, variance := MeanVar([]float32{1, 2, 3, 4})
	require.InDelta(t, 2.5, mean, 1e-9)
	require.InDelta(t, 1.25, variance, 1e-9)

	require.Equal(t, 0.0, Mean([]int{}))
}
