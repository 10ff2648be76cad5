// Package yolo reads and writes YOLO label files.
//
// A label file has one line per instance. Box lines are "cat cx cy w h", and
// polygon lines are "cat x1 y1 x2 y2 ...". All coordinates are normalized
// to the image size, which the file itself does not record.
package yolo

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// Line is one instance of a label file
type Line struct {
	Category int32
	Values   []float64 // 4 values for a box, or an even number >= 6 for a polygon
}

func (l *Line) IsBox() bool {
	return len(l.Values) == 4
}

func (l *Line) check() error {
	n := len(l.Values)
	if n == 4 || (n >= 6 && n%2 == 0) {
		return nil
	}
	return fmt.Errorf("%w: YOLO line has %v coordinates", geom.ErrFormat, n)
}

// Box interprets a box line
func (l *Line) Box(height, width int) (geom.Box, error) {
	if !l.IsBox() {
		return geom.Box{}, fmt.Errorf("%w: not a box line", geom.ErrFormat)
	}
	y := geom.YOLOBox{CX: l.Values[0], CY: l.Values[1], W: l.Values[2], H: l.Values[3]}
	return y.Box(height, width)
}

// Ring returns the outline in pixels. A box line becomes its four corners.
func (l *Line) Ring(height, width int) (geom.Ring, error) {
	if l.IsBox() {
		b, err := l.Box(height, width)
		if err != nil {
			return nil, err
		}
		x1, y1, x2, y2 := float64(b.X1), float64(b.Y1), float64(b.X2), float64(b.Y2)
		return geom.Ring{{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2}}, nil
	}
	return geom.RingFromNormalized(l.Values, height, width)
}

func (l *Line) String() string {
	s := strings.Builder{}
	s.WriteString(strconv.Itoa(int(l.Category)))
	for _, v := range l.Values {
		s.WriteByte(' ')
		s.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return s.String()
}

// Parse reads a label file. Blank lines are ignored.
func Parse(r io.Reader) ([]Line, error) {
	lines := []Line{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cat, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil || cat < 0 {
			return nil, fmt.Errorf("%w: line %v: invalid category '%v'", geom.ErrFormat, lineNo, fields[0])
		}
		line := Line{
			Category: int32(cat),
			Values:   make([]float64, len(fields)-1),
		}
		for i, f := range fields[1:] {
			if line.Values[i], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("%w: line %v: %v", geom.ErrFormat, lineNo, err)
			}
		}
		if err := line.check(); err != nil {
			return nil, fmt.Errorf("line %v: %w", lineNo, err)
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func Load(filename string) ([]Line, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return lines, nil
}

func Format(lines []Line) []byte {
	buf := bytes.Buffer{}
	for i := range lines {
		buf.WriteString(lines[i].String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func Save(filename string, lines []Line) error {
	return os.WriteFile(filename, Format(lines), 0644)
}
