package internal

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Log2Ceil returns ceil(log2(n)) for n >= 1.
func Log2Ceil(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n - 1)
}

// IsPowerOf2 returns true if the given number is a power of 2.
func IsPowerOf2(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}

func Abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
