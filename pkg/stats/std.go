package stats

import "github.com/cyclopcam/labelkit/pkg/gen"

// Returns (mean, variance) of the given samples.
func MeanVar[T gen.Float | gen.Integer](samples []T) (float64, float64) {
	mean := Mean(samples)
	variance := Variance(samples, mean)
	return mean, variance
}

// Returns the mean of the given samples, or zero if there are none.
func Mean[T gen.Float | gen.Integer](samples []T) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += float64(v)
	}
	return sum / float64(len(samples))
}

// Returns the variance of the given samples.
func Variance[T gen.Float | gen.Integer](samples []T, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		diff := float64(v) - mean
		sum += diff * diff
	}
	return sum / float64(len(samples))
}
