package internal

import "math/bits"

// MulMod returns a*b mod m without overflow, for a, b < m.
// The 128-bit intermediate keeps the product exact.
func MulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// PowMod returns base^exp mod m by square-and-multiply.
func PowMod(base, exp, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = MulMod(result, base, m)
		}
		base = MulMod(base, base, m)
		exp >>= 1
	}
	return result
}

// ModSigned reduces a signed value into [0, m).
func ModSigned(x int64, m uint64) uint64 {
	r := x % int64(m)
	if r < 0 {
		r += int64(m)
	}
	return uint64(r)
}
