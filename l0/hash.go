package l0

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/twmb/murmur3"
)

// hashFamily backs all of a Sampler's randomness. A single base seed is
// mixed into per-concern sub-seeds with xxhash, so that independently built
// Samplers sharing a seed agree on every hash decision, which is what makes
// them mergeable.
type hashFamily struct {
	seed       uint64
	levelSeeds []uint64
}

func newHashFamily(seed uint64, levels int) *hashFamily {
	f := &hashFamily{
		seed:       seed,
		levelSeeds: make([]uint64, levels),
	}
	for l := 0; l < levels; l++ {
		f.levelSeeds[l] = deriveSeed(seed, "level", l)
	}
	return f
}

// deriveSeed mixes (tag, k) into the base seed.
func deriveSeed(base uint64, tag string, k int) uint64 {
	h := xxhash.NewWithSeed(base)
	h.WriteString(tag)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(k))
	h.Write(b[:])
	return h.Sum64()
}

// keep reports whether index i survives subsampling at the given level,
// with Pr[keep] = 2^-level, independent across levels. It is a pure
// function of (i, level, seed): repeated updates to one index always agree.
func (f *hashFamily) keep(i int64, level int) bool {
	if level == 0 {
		return true
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(i))
	h := murmur3.SeedSum64(f.levelSeeds[level], b[:])
	return h>>(64-uint(level)) == 0
}
