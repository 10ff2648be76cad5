package perfstats

import (
	"time"

	"github.com/cyclopcam/labelkit/pkg/gen"
)

// Accumulator holds a sample count and a running total, from which it can produce an average
type Accumulator[T gen.Integer | gen.Float] struct {
	Samples int64
	Total   T
}

func (a *Accumulator[T]) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *Accumulator[T]) AddSample(v T) {
	a.Samples++
	a.Total += v
}

func (a *Accumulator[T]) Average() float64 {
	if a.Samples == 0 {
		return 0
	}
	return float64(a.Total) / float64(a.Samples)
}

// Merge adds the samples of b into a
func (a *Accumulator[T]) Merge(b *Accumulator[T]) {
	a.Samples += b.Samples
	a.Total += b.Total
}

// TimeAccumulator measures how long something takes
type TimeAccumulator struct {
	Accumulator[time.Duration]
}

// Time adds the time elapsed since start
func (a *TimeAccumulator) Time(start time.Time) {
	a.AddSample(time.Since(start))
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(int64(a.Total) / a.Samples)
}
