package geom

import "errors"

// Error taxonomy shared by every package in labelkit.
// Callers test for these with errors.Is. The core never recovers from them.
var (
	// A degenerate box (x2 <= x1 or y2 <= y1), or a ring with too few points
	ErrInvalidGeometry = errors.New("invalid geometry")

	// A malformed RLE or annotation record
	ErrFormat = errors.New("malformed record")

	// Parallel arrays of a collection disagree in length, or masks are mixed with box-only instances.
	// This always indicates a programming error upstream.
	ErrInvariantViolation = errors.New("invariant violation")

	// An operation was asked for a shape format it does not implement (eg mask IoU on boxes)
	ErrUnsupportedShapeFormat = errors.New("unsupported shape format")
)
