package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/cyclopcam/labelkit/pkg/inst"
	"github.com/cyclopcam/labelkit/pkg/vocab"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, filename string, width, height int) {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0755))
	require.NoError(t, img.WriteJPEG(filename, cimg.MakeCompressParams(cimg.Sampling444, 90, 0), 0644))
}

func writeText(t *testing.T, filename, text string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0755))
	require.NoError(t, os.WriteFile(filename, []byte(text), 0644))
}

// makeYOLO creates a small YOLO dataset with one good image, one image
// without labels, and one image with a broken label file.
func makeYOLO(t *testing.T, root string) (imageDir, labelDir string) {
	imageDir = filepath.Join(root, "images")
	labelDir = filepath.Join(root, "labels")
	writeImage(t, filepath.Join(imageDir, "a.jpg"), 64, 48)
	writeImage(t, filepath.Join(imageDir, "b.jpg"), 64, 48)
	writeImage(t, filepath.Join(imageDir, "c.jpg"), 64, 48)
	writeText(t, filepath.Join(imageDir, "notes.txt"), "not an image")
	writeText(t, filepath.Join(labelDir, "a.txt"), "0 0.5 0.5 0.25 0.5\n1 0.25 0.25 0.125 0.25\n")
	writeText(t, filepath.Join(labelDir, "c.txt"), "0 0.5\n")
	return
}

var expectedBoxes = []geom.Box{
	{X1: 24, Y1: 12, X2: 40, Y2: 36},
	{X1: 12, Y1: 6, X2: 20, Y2: 18},
}

func TestFormat(t *testing.T) {
	for _, f := range []Format{FormatLabelMe, FormatCOCO, FormatYOLO} {
		p, err := ParseFormat(f.String())
		require.NoError(t, err)
		require.Equal(t, f, p)
	}
	_, err := ParseFormat("voc")
	require.Error(t, err)
}

func TestImageSize(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "x.jpg")
	writeImage(t, filename, 40, 30)
	h, w, err := ImageSize(filename)
	require.NoError(t, err)
	require.Equal(t, 30, h)
	require.Equal(t, 40, w)
}

func TestLoadYOLO(t *testing.T) {
	log := logs.NewTestingLog(t)
	v, err := vocab.FromNames([]string{"person", "car"})
	require.NoError(t, err)
	imageDir, labelDir := makeYOLO(t, t.TempDir())

	_, err = LoadYOLO(log, imageDir, labelDir, v, LoadOptions{Shape: inst.ShapeBox})
	require.ErrorIs(t, err, geom.ErrFormat)

	items, err := LoadYOLO(log, imageDir, labelDir, v, LoadOptions{Shape: inst.ShapeBox, SkipInvalid: true})
	require.NoError(t, err)
	require.Equal(t, 1, len(items))
	require.Equal(t, 48, items[0].Height)
	require.Equal(t, 64, items[0].Width)
	require.Equal(t, filepath.Join(imageDir, "a.jpg"), items[0].ImagePath)
	require.Equal(t, expectedBoxes, items[0].Instances.Boxes())
	require.Equal(t, []int32{0, 1}, items[0].Instances.Categories())
}

func TestExportAndReload(t *testing.T) {
	log := logs.NewTestingLog(t)
	v, err := vocab.FromNames([]string{"person", "car"})
	require.NoError(t, err)
	root := t.TempDir()
	imageDir, labelDir := makeYOLO(t, filepath.Join(root, "src"))
	items, err := LoadYOLO(log, imageDir, labelDir, v, LoadOptions{Shape: inst.ShapeBoxAndMask, SkipInvalid: true})
	require.NoError(t, err)
	require.Equal(t, 1, len(items))

	exporter := func(name string) *Exporter {
		return &Exporter{
			Log:        log,
			Vocab:      v,
			Dir:        filepath.Join(root, name),
			CopyImages: true,
		}
	}

	// LabelMe, as rectangles
	lm := exporter("labelme")
	require.NoError(t, lm.Export(FormatLabelMe, items, ExportOptions{Shape: inst.ShapeBox}))
	require.FileExists(t, filepath.Join(lm.Dir, "000000.jpg"))
	back, err := LoadLabelMe(log, lm.Dir, v, LoadOptions{Shape: inst.ShapeBox})
	require.NoError(t, err)
	require.Equal(t, 1, len(back))
	require.Equal(t, expectedBoxes, back[0].Instances.Boxes())
	require.Equal(t, filepath.Join(lm.Dir, "000000.jpg"), back[0].ImagePath)

	// LabelMe, as polygons
	lmp := exporter("labelme-poly")
	require.NoError(t, lmp.Export(FormatLabelMe, items, DefaultExportOptions()))
	back, err = LoadLabelMe(log, lmp.Dir, v, LoadOptions{Shape: inst.ShapeBoxAndMask})
	require.NoError(t, err)
	require.Equal(t, 2, back[0].Instances.Len())
	require.True(t, back[0].Instances.Masks()[0].At(30, 20))

	// COCO, with RLE masks, is lossless
	cc := exporter("coco")
	opt := DefaultExportOptions()
	opt.UseRLE = true
	require.NoError(t, cc.Export(FormatCOCO, items, opt))
	require.FileExists(t, filepath.Join(cc.Dir, "images", "000000.jpg"))
	back, cv, err := LoadCOCO(log, filepath.Join(cc.Dir, "annotations.json"), filepath.Join(cc.Dir, "images"), nil, LoadOptions{Shape: inst.ShapeBoxAndMask})
	require.NoError(t, err)
	require.Equal(t, v.Names(), cv.Names())
	require.Equal(t, 1, len(back))
	require.EqualValues(t, 1, back[0].ID)
	require.Equal(t, expectedBoxes, back[0].Instances.Boxes())
	for i, m := range back[0].Instances.Masks() {
		require.True(t, m.Equal(items[0].Instances.Masks()[i]))
	}

	// YOLO boxes
	yo := exporter("yolo")
	require.NoError(t, yo.Export(FormatYOLO, items, ExportOptions{Shape: inst.ShapeBox}))
	back, err = LoadYOLO(log, filepath.Join(yo.Dir, "images"), filepath.Join(yo.Dir, "labels"), v, LoadOptions{Shape: inst.ShapeBox})
	require.NoError(t, err)
	require.Equal(t, 1, len(back))
	require.Equal(t, expectedBoxes, back[0].Instances.Boxes())
	yv, err := vocab.LoadYAML(filepath.Join(yo.Dir, "data.yaml"))
	require.NoError(t, err)
	require.Equal(t, v.Names(), yv.Names())

	// Polygons need masks
	require.ErrorIs(t, yo.Export(FormatYOLO, []Item{{ImagePath: "x.jpg", Height: 48, Width: 64, Instances: items[0].Instances.BoxesOnly()}}, DefaultExportOptions()), geom.ErrUnsupportedShapeFormat)
}
