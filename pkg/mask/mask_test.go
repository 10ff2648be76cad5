package mask

import (
	"testing"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/stretchr/testify/require"
)

func TestMaskAlgebra(t *testing.T) {
	a := FromBox(20, 20, geom.Box{X1: 0, Y1: 0, X2: 10, Y2: 10})
	b := FromBox(20, 20, geom.Box{X1: 5, Y1: 5, X2: 15, Y2: 15})
	require.EqualValues(t, 100, a.Area())

	inter, union, err := a.Overlap(b)
	require.NoError(t, err)
	require.EqualValues(t, 25, inter)
	require.EqualValues(t, 175, union)

	or, err := a.Or(b)
	require.NoError(t, err)
	require.EqualValues(t, 175, or.Area())
	and, err := a.And(b)
	require.NoError(t, err)
	require.EqualValues(t, 25, and.Area())

	u, err := Union([]*Mask{a, b})
	require.NoError(t, err)
	require.True(t, u.Equal(or))

	_, _, err = a.Overlap(New(20, 21))
	require.ErrorIs(t, err, geom.ErrInvalidGeometry)
}

func TestMaskBoundingBox(t *testing.T) {
	m := FromBox(30, 40, geom.Box{X1: 3, Y1: 4, X2: 12, Y2: 29})
	box, err := m.BoundingBox()
	require.NoError(t, err)
	require.Equal(t, geom.Box{X1: 3, Y1: 4, X2: 12, Y2: 29}, box)

	// clipped to the image
	m = FromBox(10, 10, geom.Box{X1: -5, Y1: 8, X2: 50, Y2: 12})
	box, err = m.BoundingBox()
	require.NoError(t, err)
	require.Equal(t, geom.Box{X1: 0, Y1: 8, X2: 10, Y2: 10}, box)

	_, err = New(5, 5).BoundingBox()
	require.ErrorIs(t, err, geom.ErrInvalidGeometry)
}

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]bool{
		{false, true, false},
		{true, true, false},
	})
	require.NoError(t, err)
	require.Equal(t, 3, m.Width)
	require.Equal(t, 2, m.Height)
	require.True(t, m.At(1, 0))
	require.True(t, m.At(0, 1))
	require.False(t, m.At(2, 1))

	_, err = FromRows([][]bool{{true}, {true, false}})
	require.Error(t, err)
}
