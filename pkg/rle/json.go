package rle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cyclopcam/labelkit/pkg/geom"
)

// record is the COCO json form: {"size": [h, w], "counts": "..."}.
// counts may also be a plain list of run lengths (the uncompressed form).
type record struct {
	Size   []int           `json:"size"`
	Counts json.RawMessage `json:"counts"`
}

// MarshalJSON always writes the compressed string form
func (r *RLE) MarshalJSON() ([]byte, error) {
	counts, err := json.Marshal(r.String())
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{
		Size:   []int{r.Height, r.Width},
		Counts: counts,
	})
}

func (r *RLE) UnmarshalJSON(b []byte) error {
	rec := record{}
	if err := json.Unmarshal(b, &rec); err != nil {
		return fmt.Errorf("%w: %v", geom.ErrFormat, err)
	}
	if len(rec.Size) != 2 {
		return fmt.Errorf("%w: RLE 'size' must be [height, width]", geom.ErrFormat)
	}
	raw := bytes.TrimSpace(rec.Counts)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: RLE is missing 'counts'", geom.ErrFormat)
	}
	h, w := rec.Size[0], rec.Size[1]
	var decoded *RLE
	if raw[0] == '"' {
		s := ""
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("%w: RLE counts: %v", geom.ErrFormat, err)
		}
		var err error
		if decoded, err = FromString(h, w, s); err != nil {
			return err
		}
	} else {
		counts := []uint32{}
		if err := json.Unmarshal(raw, &counts); err != nil {
			return fmt.Errorf("%w: RLE counts: %v", geom.ErrFormat, err)
		}
		decoded = &RLE{Height: h, Width: w, Counts: counts}
		if err := decoded.Validate(); err != nil {
			return err
		}
	}
	*r = *decoded
	return nil
}
