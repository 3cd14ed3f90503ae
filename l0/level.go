package l0

import (
	"math/rand"

	"github.com/savelyevno/l0-sampler/recovery"
)

// level pairs one subsampling mask (keep probability 2^-index) with one
// s-sparse recoverer over the kept coordinates.
type level struct {
	index int
	rec   *recovery.SparseRecoverer
}

// update forwards a_i += delta to the recoverer when i is in the level's
// subsample, and is a no-op otherwise.
func (lv *level) update(f *hashFamily, i, delta int64) error {
	if !f.keep(i, lv.index) {
		return nil
	}
	return lv.rec.Update(i, delta)
}

// trySample decodes the level's recoverer and, on a verified nonempty
// result, returns one entry chosen uniformly at random. ok is false when
// the level has no live coordinates or recovery failed; the caller moves on
// to the next level.
func (lv *level) trySample(rng *rand.Rand) (recovery.Entry, bool) {
	entries, ok := lv.rec.Decode()
	if !ok || len(entries) == 0 {
		return recovery.Entry{}, false
	}
	return entries[rng.Intn(len(entries))], true
}
