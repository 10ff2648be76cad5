package eval

import (
	"math/rand"
	"testing"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/stretchr/testify/require"
)

func box(x1, y1, x2, y2 int32) geom.Box {
	return geom.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestBoxOverlap(t *testing.T) {
	a := []geom.Box{box(0, 0, 10, 10)}
	b := []geom.Box{box(5, 5, 15, 15), box(0, 0, 10, 10), box(10, 0, 20, 10), box(100, 100, 110, 110)}
	m := BoxOverlap(a, b, ModeIoU)
	require.Equal(t, 1, m.Rows)
	require.Equal(t, 4, m.Cols)
	require.InDelta(t, 25.0/175.0, m.At(0, 0), 1e-6)
	require.InDelta(t, 1.0, m.At(0, 1), 1e-6)
	require.Equal(t, float32(0), m.At(0, 2)) // touching
	require.Equal(t, float32(0), m.At(0, 3))

	m = BoxOverlap(a, b, ModeIoF)
	require.InDelta(t, 0.25, m.At(0, 0), 1e-6)

	// a box inside another: IoF of the small one is 1
	m = BoxOverlap([]geom.Box{box(2, 2, 4, 4)}, []geom.Box{box(0, 0, 10, 10)}, ModeIoF)
	require.InDelta(t, 1.0, m.At(0, 0), 1e-6)

	m = BoxOverlap(nil, b, ModeIoU)
	require.Equal(t, 0, m.Rows)
	require.Equal(t, 4, m.Cols)
}

func TestBoxOverlapProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	boxes := make([]geom.Box, 60)
	for i := range boxes {
		x := int32(rng.Intn(100))
		y := int32(rng.Intn(100))
		boxes[i] = box(x, y, x+1+int32(rng.Intn(40)), y+1+int32(rng.Intn(40)))
	}
	m := BoxOverlap(boxes, boxes, ModeIoU)
	for i := range boxes {
		require.InDelta(t, 1.0, m.At(i, i), 1e-6)
		for j := range boxes {
			require.Equal(t, m.At(i, j), m.At(j, i))
			require.GreaterOrEqual(t, m.At(i, j), float32(0))
			require.LessOrEqual(t, m.At(i, j), float32(1))
			if boxes[i].IntersectionArea(boxes[j]) == 0 {
				require.Equal(t, float32(0), m.At(i, j))
			}
		}
	}
}

func TestMaskOverlap(t *testing.T) {
	a := mask.FromBox(20, 20, box(0, 0, 10, 10))
	b := mask.FromBox(20, 20, box(5, 5, 15, 15))
	c := mask.FromBox(20, 20, box(15, 15, 20, 20))
	m, err := MaskOverlap([]*mask.Mask{a, b}, []*mask.Mask{b, c, mask.New(20, 20)}, ModeIoU)
	require.NoError(t, err)
	require.InDelta(t, 25.0/175.0, m.At(0, 0), 1e-6)
	require.InDelta(t, 1.0, m.At(1, 0), 1e-6)
	require.Equal(t, float32(0), m.At(0, 1))
	require.Equal(t, float32(0), m.At(0, 2))

	_, err = MaskOverlap([]*mask.Mask{a}, []*mask.Mask{mask.New(10, 10)}, ModeIoU)
	require.ErrorIs(t, err, geom.ErrInvalidGeometry)
}

func TestOverlapShapeFormat(t *testing.T) {
	boxes := []geom.Box{box(0, 0, 10, 10)}
	c, err := inst.New(1, inst.ShapeBox, []float32{1}, []int32{0}, boxes, nil)
	require.NoError(t, err)

	_, err = Overlap(c, c, inst.ShapeBoxAndMask, ModeIoU)
	require.ErrorIs(t, err, geom.ErrUnsupportedShapeFormat)

	m, err := Overlap(c, c, inst.ShapeBox, ModeIoU)
	require.NoError(t, err)
	require.InDelta(t, 1.0, m.At(0, 0), 1e-6)

	withMasks := c.WithBoxMasks(16, 16)
	m, err = Overlap(withMasks, withMasks, inst.ShapeBoxAndMask, ModeIoU)
	require.NoError(t, err)
	require.InDelta(t, 1.0, m.At(0, 0), 1e-6)
}
