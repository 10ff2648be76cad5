package yolo

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/mask"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/stretchr/testify/require"
)

func testVocab(t *testing.T) *vocab.Vocab {
	v, err := vocab.FromNames([]string{"person", "car", "dog"})
	require.NoError(t, err)
	return v
}

func TestParse(t *testing.T) {
	text := "0 0.5 0.5 0.2 0.4\n\n2 0 0 0 0.5 0.5 0.5 0.5 0\n"
	lines, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, len(lines))
	require.True(t, lines[0].IsBox())
	require.False(t, lines[1].IsBox())
	require.EqualValues(t, 2, lines[1].Category)
	require.Equal(t, "0 0.5 0.5 0.2 0.4\n2 0 0 0 0.5 0.5 0.5 0.5 0\n", string(Format(lines)))

	bad := []string{
		"0 0.5 0.5 0.2",
		"1 0.1 0.1 0.2 0.2 0.3",
		"x 0.5 0.5 0.2 0.4",
		"-1 0.5 0.5 0.2 0.4",
		"0 0.5 0.5 0.2 abc",
	}
	for _, b := range bad {
		_, err := Parse(strings.NewReader(b))
		require.ErrorIs(t, err, geom.ErrFormat, b)
	}
}

func TestBoxLines(t *testing.T) {
	v := testVocab(t)
	lines := []Line{
		{Category: 0, Values: []float64{0.5, 0.5, 0.2, 0.4}},
	}
	c, err := ToCollection(lines, 100, 200, v, inst.ShapeBox)
	require.NoError(t, err)
	require.Equal(t, geom.Box{X1: 80, Y1: 30, X2: 120, Y2: 70}, c.Boxes()[0])
	require.Equal(t, []float32{1}, c.Confidences())

	back, err := FromCollection(c, 100, 200, ExportOptions{Shape: inst.ShapeBox})
	require.NoError(t, err)
	require.Equal(t, lines, back)

	c, err = ToCollection(lines, 100, 200, v, inst.ShapeBoxAndMask)
	require.NoError(t, err)
	require.EqualValues(t, 40*40, c.Masks()[0].Area())

	_, err = ToCollection([]Line{{Category: 5, Values: []float64{0.5, 0.5, 0.2, 0.4}}}, 100, 200, v, inst.ShapeBox)
	require.ErrorIs(t, err, vocab.ErrUnknownCategory)
	_, err = ToCollection(lines, 0, 200, v, inst.ShapeBox)
	require.ErrorIs(t, err, geom.ErrInvalidGeometry)
}

func TestPolygonLines(t *testing.T) {
	v := testVocab(t)
	// Square from (2,4) to (12,14) in a 20 x 40 image
	lines := []Line{
		{Category: 2, Values: []float64{2.0 / 40, 4.0 / 20, 2.0 / 40, 14.0 / 20, 12.0 / 40, 14.0 / 20, 12.0 / 40, 4.0 / 20}},
	}
	c, err := ToCollection(lines, 20, 40, v, inst.ShapeBoxAndMask)
	require.NoError(t, err)
	require.Equal(t, geom.Box{X1: 2, Y1: 4, X2: 12, Y2: 14}, c.Boxes()[0])
	require.EqualValues(t, 100, c.Masks()[0].Area())

	out, err := FromCollection(c, 20, 40, DefaultExportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, len(out))
	require.False(t, out[0].IsBox())
	require.EqualValues(t, 2, out[0].Category)
	for _, val := range out[0].Values {
		require.GreaterOrEqual(t, val, 0.0)
		require.LessOrEqual(t, val, 1.0)
	}

	// Masks are required for polygon export
	_, err = FromCollection(c.BoxesOnly(), 20, 40, DefaultExportOptions())
	require.ErrorIs(t, err, geom.ErrUnsupportedShapeFormat)
}

func TestSaveLoad(t *testing.T) {
	v := testVocab(t)
	m := mask.FromBox(30, 30, geom.Box{X1: 5, Y1: 5, X2: 25, Y2: 25})
	hole := mask.FromBox(30, 30, geom.Box{X1: 10, Y1: 10, X2: 15, Y2: 15})
	m, err := m.AndNot(hole)
	require.NoError(t, err)
	c, err := inst.FromInstances(v.Len(), inst.ShapeBoxAndMask, []inst.Instance{
		{Confidence: 0.5, Category: 1, Box: geom.Box{X1: 5, Y1: 5, X2: 25, Y2: 25}, Mask: m},
	})
	require.NoError(t, err)

	lines, err := FromCollection(c, 30, 30, DefaultExportOptions())
	require.NoError(t, err)
	filename := filepath.Join(t.TempDir(), "0.txt")
	require.NoError(t, Save(filename, lines))
	back, err := Load(filename)
	require.NoError(t, err)
	require.Equal(t, lines, back)

	// The hole survives as part of the single ring
	bc, err := ToCollection(back, 30, 30, v, inst.ShapeBoxAndMask)
	require.NoError(t, err)
	bm := bc.Masks()[0]
	require.True(t, bm.At(7, 7))
	require.True(t, bm.At(20, 20))
	require.False(t, bm.At(12, 12))
}
