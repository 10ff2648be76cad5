package geom

import (
	"fmt"
	"math"
)

// External box forms:
//   xywh      pixel x, y, width, height (integer)
//   LabelMe   two corner points [[x1,y1],[x2,y2]], in any order
//   COCO      [x, y, w, h] as floats
//   YOLO      normalized center x, center y, width, height, all relative to the image size

// XYWH returns the box as x, y, width, height. This is exact.
func (b Box) XYWH() [4]int32 {
	return [4]int32{b.X1, b.Y1, b.Width(), b.Height()}
}

// BoxFromXYWH is the exact inverse of Box.XYWH
func BoxFromXYWH(x, y, w, h int32) (Box, error) {
	x2 := int64(x) + int64(w)
	y2 := int64(y) + int64(h)
	if x2 > math.MaxInt32 || y2 > math.MaxInt32 || x2 < math.MinInt32 || y2 < math.MinInt32 {
		return Box{}, fmt.Errorf("%w: box %v,%v %vx%v overflows", ErrInvalidGeometry, x, y, w, h)
	}
	return NewBox(x, y, int32(x2), int32(y2))
}

// LabelMe returns the two-point rectangle form used by LabelMe "rectangle" shapes
func (b Box) LabelMe() [][2]float64 {
	return [][2]float64{
		{float64(b.X1), float64(b.Y1)},
		{float64(b.X2), float64(b.Y2)},
	}
}

// BoxFromLabelMe accepts the two corner points in any order (LabelMe records
// the drag direction of the user).
func BoxFromLabelMe(points [][2]float64) (Box, error) {
	if len(points) != 2 {
		return Box{}, fmt.Errorf("%w: LabelMe rectangle needs 2 points, got %v", ErrFormat, len(points))
	}
	a, b := points[0], points[1]
	return boxFromFloat(math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Max(a[0], b[0]), math.Max(a[1], b[1]))
}

// COCO returns [x, y, w, h]
func (b Box) COCO() [4]float64 {
	return [4]float64{float64(b.X1), float64(b.Y1), float64(b.Width()), float64(b.Height())}
}

// BoxFromCOCO converts a COCO [x, y, w, h] bbox. Fractional extents are
// widened to the enclosing integer box.
func BoxFromCOCO(bbox [4]float64) (Box, error) {
	return boxFromFloat(bbox[0], bbox[1], bbox[0]+bbox[2], bbox[1]+bbox[3])
}

// YOLOBox is a box normalized to the image size. All values are in [0,1] for
// boxes that lie inside the image.
type YOLOBox struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

func checkImageSize(height, width int) error {
	if height <= 0 || width <= 0 {
		return fmt.Errorf("%w: image size %vx%v", ErrInvalidGeometry, width, height)
	}
	return nil
}

// YOLO normalizes the box by the image size (height, width).
func (b Box) YOLO(height, width int) (YOLOBox, error) {
	if err := checkImageSize(height, width); err != nil {
		return YOLOBox{}, err
	}
	w := float64(b.Width())
	h := float64(b.Height())
	c := b.Center()
	return YOLOBox{
		CX: c.X / float64(width),
		CY: c.Y / float64(height),
		W:  w / float64(width),
		H:  h / float64(height),
	}, nil
}

// Box converts back to pixels. Each corner is rounded to the nearest integer,
// so for a box that started out as integers, the round trip reproduces it.
// Callers must not rely on anything stronger than that.
func (y YOLOBox) Box(height, width int) (Box, error) {
	if err := checkImageSize(height, width); err != nil {
		return Box{}, err
	}
	cx := y.CX * float64(width)
	cy := y.CY * float64(height)
	w := y.W * float64(width)
	h := y.H * float64(height)
	x1 := cx - 0.5*w
	y1 := cy - 0.5*h
	return boxFromIntegral([4]float64{math.Round(x1), math.Round(y1), math.Round(x1 + w), math.Round(y1 + h)})
}
