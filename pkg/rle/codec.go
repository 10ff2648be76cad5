package rle

import (
	"fmt"
	"strings"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// String returns the compressed counts string used in COCO json files.
//
// Each count (after the first two, as a delta against the count two places
// back) is written as a little-endian sequence of 5 bit groups. Bit 0x20 of a
// character means another group follows, and 48 is added to land in printable ASCII.
func (r *RLE) String() string {
	var s strings.Builder
	s.Grow(len(r.Counts) * 2)
	for i, c := range r.Counts {
		x := int64(c)
		if i > 2 {
			x -= int64(r.Counts[i-2])
		}
		for more := true; more; {
			ch := byte(x & 0x1f)
			x >>= 5
			if ch&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				ch |= 0x20
			}
			s.WriteByte(ch + 48)
		}
	}
	return s.String()
}

// FromString decodes a compressed counts string
func FromString(height, width int, s string) (*RLE, error) {
	counts := make([]uint32, 0, len(s))
	p := 0
	for p < len(s) {
		x := int64(0)
		k := 0
		for more := true; more; {
			if p >= len(s) {
				return nil, fmt.Errorf("%w: truncated RLE counts string", geom.ErrFormat)
			}
			ch := int64(s[p]) - 48
			if ch < 0 || ch > 63 || k > 12 {
				return nil, fmt.Errorf("%w: invalid RLE counts string at offset %v", geom.ErrFormat, p)
			}
			x |= (ch & 0x1f) << (5 * k)
			more = ch&0x20 != 0
			p++
			k++
			if !more && ch&0x10 != 0 {
				// sign extend
				x |= -1 << (5 * k)
			}
		}
		if len(counts) > 2 {
			x += int64(counts[len(counts)-2])
		}
		if x < 0 || x > 0xffffffff {
			return nil, fmt.Errorf("%w: RLE run length %v out of range", geom.ErrFormat, x)
		}
		counts = append(counts, uint32(x))
	}
	r := &RLE{Height: height, Width: width, Counts: counts}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
