package gen

func Abs[T Integer | Float](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

func Clamp[T Ordered](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ArgMax returns the index of the largest element, or -1 if the slice is empty.
// On ties the first index wins.
func ArgMax[T Ordered](s []T) int {
	best := -1
	for i, v := range s {
		if best == -1 || v > s[best] {
			best = i
		}
	}
	return best
}

// ArgMaxFunc is ArgMax over n virtual elements, for data that isn't a contiguous slice
func ArgMaxFunc[T Ordered](n int, at func(i int) T) int {
	best := -1
	var bestV T
	for i := 0; i < n; i++ {
		if v := at(i); best == -1 || v > bestV {
			best = i
			bestV = v
		}
	}
	return best
}
