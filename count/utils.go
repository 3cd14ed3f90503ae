package count

import (
	"errors"
	"math"

	"golang.org/x/exp/constraints"
)

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// SuggestDepth returns the number of rows needed for per-index failure
// probability at most delta.
func SuggestDepth(delta float64) (int, error) {
	if delta <= 0 || delta >= 1 {
		return 0, errors.New("delta must be in (0, 1)")
	}
	d := int(math.Ceil(math.Log2(1 / delta)))
	if d < 1 {
		d = 1
	}
	return d, nil
}

// SuggestWidth returns the number of counters per row needed for scaling
// error eps relative to the l2 norm.
func SuggestWidth(eps float64) (int, error) {
	if eps <= 0 || eps >= 1 {
		return 0, errors.New("eps must be in (0, 1)")
	}
	return int(math.Ceil(3 / (eps * eps))), nil
}
