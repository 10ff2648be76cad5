package inst

import (
	"testing"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/stretchr/testify/require"
)

func box(x1, y1, x2, y2 int32) geom.Box {
	return geom.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func testCollection(t *testing.T, withMasks bool) *Collection {
	boxes := []geom.Box{box(0, 0, 10, 10), box(5, 5, 15, 15), box(1, 2, 3, 4), box(20, 20, 30, 30)}
	format := ShapeBox
	var masks []*mask.Mask
	if withMasks {
		format = ShapeBoxAndMask
		for _, b := range boxes {
			masks = append(masks, mask.FromBox(32, 32, b))
		}
	}
	c, err := New(3, format, []float32{0.5, 0.9, 0.5, 0.1}, []int32{0, 1, 2, 1}, boxes, masks)
	require.NoError(t, err)
	return c
}

func TestNewChecksInvariants(t *testing.T) {
	_, err := New(3, ShapeBox, []float32{1, 1}, []int32{0}, []geom.Box{box(0, 0, 1, 1)}, nil)
	require.ErrorIs(t, err, geom.ErrInvariantViolation)

	// mixed: masks on a box-only collection
	_, err = New(3, ShapeBox, []float32{1}, []int32{0}, []geom.Box{box(0, 0, 1, 1)}, []*mask.Mask{mask.New(2, 2)})
	require.ErrorIs(t, err, geom.ErrInvariantViolation)

	// missing masks
	_, err = New(3, ShapeBoxAndMask, []float32{1}, []int32{0}, []geom.Box{box(0, 0, 1, 1)}, nil)
	require.ErrorIs(t, err, geom.ErrInvariantViolation)

	_, err = New(3, ShapeBox, []float32{1.5}, []int32{0}, []geom.Box{box(0, 0, 1, 1)}, nil)
	require.ErrorIs(t, err, geom.ErrInvariantViolation)

	_, err = New(3, ShapeBox, []float32{1}, []int32{0}, []geom.Box{box(0, 0, 0, 1)}, nil)
	require.ErrorIs(t, err, geom.ErrInvalidGeometry)

	c, err := FromInstances(3, ShapeBox, nil)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())
}

func TestSelect(t *testing.T) {
	for _, withMasks := range []bool{false, true} {
		c := testCollection(t, withMasks)
		s, err := c.Select([]int{3, 1})
		require.NoError(t, err)
		require.Equal(t, []float32{0.1, 0.9}, s.Confidences())
		require.Equal(t, []int32{1, 1}, s.Categories())
		require.Equal(t, []geom.Box{box(20, 20, 30, 30), box(5, 5, 15, 15)}, s.Boxes())
		require.NoError(t, s.Check())
		if withMasks {
			mb, err := s.Masks()[0].BoundingBox()
			require.NoError(t, err)
			require.Equal(t, box(20, 20, 30, 30), mb)
			// a copy, not an alias
			s.Masks()[0].Set(0, 0, true)
			require.False(t, c.Masks()[3].At(0, 0))
		}

		_, err = c.Select([]int{4})
		require.ErrorIs(t, err, geom.ErrInvariantViolation)

		s, err = c.SelectMask([]bool{true, false, true, false})
		require.NoError(t, err)
		require.Equal(t, []int32{0, 2}, s.Categories())
		_, err = c.SelectMask([]bool{true})
		require.ErrorIs(t, err, geom.ErrInvariantViolation)
	}
}

func TestSortAndFilter(t *testing.T) {
	c := testCollection(t, true)
	s := c.SortByConfidence(true)
	require.Equal(t, []float32{0.9, 0.5, 0.5, 0.1}, s.Confidences())
	// stable: the two 0.5s keep their order
	require.Equal(t, []int32{1, 0, 2, 1}, s.Categories())
	for i := 0; i < s.Len(); i++ {
		mb, err := s.Masks()[i].BoundingBox()
		require.NoError(t, err)
		require.Equal(t, s.Boxes()[i], mb)
	}

	s = c.SortByConfidence(false)
	require.Equal(t, []float32{0.1, 0.5, 0.5, 0.9}, s.Confidences())
	require.Equal(t, []int32{1, 0, 2, 1}, s.Categories())

	// original untouched
	require.Equal(t, []float32{0.5, 0.9, 0.5, 0.1}, c.Confidences())

	require.Equal(t, []float32{0.5, 0.9, 0.5}, c.FilterByConfidence(0.5, KeepAbove).Confidences())
	require.Equal(t, []float32{0.5, 0.5, 0.1}, c.FilterByConfidence(0.5, KeepBelow).Confidences())

	top := c.TopK(2)
	require.Equal(t, []float32{0.9, 0.5}, top.Confidences())
	require.Equal(t, []int32{1, 0}, top.Categories())
	require.Equal(t, 4, c.TopK(10).Len())
	require.Equal(t, 0, c.TopK(0).Len())
}

func TestConcat(t *testing.T) {
	a := testCollection(t, false)
	b := testCollection(t, false)
	c, err := a.Concat(b, a)
	require.NoError(t, err)
	require.Equal(t, 12, c.Len())
	require.Equal(t, a.Boxes(), c.Boxes()[8:])

	_, err = a.Concat(testCollection(t, true))
	require.ErrorIs(t, err, geom.ErrUnsupportedShapeFormat)

	other, err := New(80, ShapeBox, []float32{1}, []int32{0}, []geom.Box{box(0, 0, 1, 1)}, nil)
	require.NoError(t, err)
	_, err = a.Concat(other)
	require.ErrorIs(t, err, geom.ErrInvariantViolation)

	m := testCollection(t, true)
	c, err = m.Concat(Empty(3, ShapeBoxAndMask), m)
	require.NoError(t, err)
	require.Equal(t, 8, c.Len())
	require.Equal(t, 8, len(c.Masks()))
}

func TestByCategory(t *testing.T) {
	c := testCollection(t, false)
	parts := c.ByCategory()
	require.Equal(t, 3, len(parts))
	require.Equal(t, []float32{0.9, 0.1}, parts[1].Confidences())
	require.Equal(t, []geom.Box{box(1, 2, 3, 4)}, parts[2].Boxes())
	require.Equal(t, []int32{0, 1, 2}, c.CategoryIDs())
}

func TestShapeFormatConversion(t *testing.T) {
	c := testCollection(t, false)
	m := c.WithBoxMasks(32, 32)
	require.Equal(t, ShapeBoxAndMask, m.Format())
	require.EqualValues(t, 100, m.Masks()[0].Area())
	h, w, ok := m.MaskSize()
	require.True(t, ok)
	require.Equal(t, 32, h)
	require.Equal(t, 32, w)

	b := m.BoxesOnly()
	require.Equal(t, ShapeBox, b.Format())
	require.Nil(t, b.Masks())
	require.NoError(t, b.Check())
}

func TestApply(t *testing.T) {
	c := testCollection(t, false)
	same, err := c.Apply(func(c *Collection) (*Collection, error) {
		return c.SortByConfidence(true), nil
	})
	require.NoError(t, err)
	require.True(t, same == c)
	require.Equal(t, []float32{0.9, 0.5, 0.5, 0.1}, c.Confidences())

	_, err = c.Apply(func(c *Collection) (*Collection, error) {
		return c.Select([]int{99})
	})
	require.Error(t, err)
	require.Equal(t, 4, c.Len())
}
