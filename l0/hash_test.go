package l0

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeepIsSticky(t *testing.T) {
	f := newHashFamily(123, 12)
	for level := 0; level < 12; level++ {
		for i := int64(0); i < 100; i++ {
			first := f.keep(i, level)
			for _i := 0; _i < 5; _i++ {
				assert.Equal(t, first, f.keep(i, level), "keep(%d, %d) changed between calls", i, level)
			}
		}
	}
}

func TestKeepLevelZeroKeepsAll(t *testing.T) {
	f := newHashFamily(99, 4)
	for i := int64(0); i < 1000; i++ {
		assert.True(t, f.keep(i, 0))
	}
}

func TestKeepRate(t *testing.T) {
	f := newHashFamily(7, 8)
	const total = 100000
	for _, level := range []int{1, 3, 5} {
		kept := 0
		for i := int64(0); i < total; i++ {
			if f.keep(i, level) {
				kept++
			}
		}
		expected := float64(total) / float64(int(1)<<level)
		assert.InDelta(t, expected, float64(kept), 6*expected/10, "level %d", level)
	}
}

func TestKeepIndependentAcrossSeeds(t *testing.T) {
	a := newHashFamily(1, 4)
	b := newHashFamily(2, 4)
	same := 0
	const total = 2000
	for i := int64(0); i < total; i++ {
		if a.keep(i, 2) == b.keep(i, 2) {
			same++
		}
	}
	// agreement rate for two independent p=1/4 masks is 1/16 + 9/16 = 5/8
	assert.Greater(t, same, total/2)
	assert.Less(t, same, total*3/4)
}

func TestDeriveSeedDistinct(t *testing.T) {
	seen := map[uint64]bool{}
	for k := 0; k < 100; k++ {
		seen[deriveSeed(42, "level", k)] = true
		seen[deriveSeed(42, "recoverer", k)] = true
	}
	seen[deriveSeed(42, "dense", 0)] = true
	assert.Len(t, seen, 201)

	assert.Equal(t, deriveSeed(42, "level", 1), deriveSeed(42, "level", 1))
	assert.NotEqual(t, deriveSeed(42, "level", 1), deriveSeed(43, "level", 1))
}
