package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPrime(t *testing.T) {
	primes := []uint64{2, 3, 5, 7, 11, 13, 97, 101, 7919, 1000003, 2147483647}
	for _, p := range primes {
		assert.True(t, IsPrime(p), "%d should be prime", p)
	}

	composites := []uint64{0, 1, 4, 9, 15, 91, 561, 1105, 6601, // Carmichael numbers included
		3215031751, // strong pseudoprime to bases 2, 3, 5, 7
		1000001}
	for _, c := range composites {
		assert.False(t, IsPrime(c), "%d should be composite", c)
	}
}

func TestIsPrimeLarge(t *testing.T) {
	// primes near 2^61 and 2^62
	assert.True(t, IsPrime(2305843009213693951)) // Mersenne prime 2^61-1
	assert.False(t, IsPrime(2305843009213693953))
	assert.True(t, IsPrime(4611686018427387847))
}

func TestNextPrime(t *testing.T) {
	assert.Equal(t, uint64(2), NextPrime(0))
	assert.Equal(t, uint64(2), NextPrime(2))
	assert.Equal(t, uint64(3), NextPrime(3))
	assert.Equal(t, uint64(5), NextPrime(4))
	assert.Equal(t, uint64(101), NextPrime(98))
	assert.Equal(t, uint64(1000003), NextPrime(1000000))
	p := NextPrime(1 << 40)
	assert.True(t, IsPrime(p))
	assert.GreaterOrEqual(t, p, uint64(1)<<40)
}
