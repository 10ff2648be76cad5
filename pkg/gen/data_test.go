package gen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgMax(t *testing.T) {
	require.Equal(t, -1, ArgMax([]float32{}))
	require.Equal(t, 0, ArgMax([]int{7}))
	require.Equal(t, 2, ArgMax([]int{1, 3, 5, 2}))

	// first of equal maxima
	require.Equal(t, 1, ArgMax([]float32{0.2, 0.9, 0.9, 0.1}))

	col := []float32{0.3, 0.8, 0.8}
	require.Equal(t, 1, ArgMaxFunc(len(col), func(i int) float32 { return col[i] }))
	require.Equal(t, -1, ArgMaxFunc(0, func(i int) float32 { return 0 }))
}

func TestClamp(t *testing.T) {
	require.Equal(t, 5, Clamp(9, 0, 5))
	require.Equal(t, 0, Clamp(-3, 0, 5))
	require.Equal(t, 2.5, Clamp(2.5, 0.0, 5.0))
	require.Equal(t, 4, Abs(-4))
}
