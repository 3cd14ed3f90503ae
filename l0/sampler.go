package l0

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/savelyevno/l0-sampler/internal"
	"github.com/savelyevno/l0-sampler/recovery"
)

// ErrInvalidIndex is returned by Update when the index is outside [0, n).
var ErrInvalidIndex = recovery.ErrInvalidIndex

// Sample is one ℓ0-sample: a nonzero coordinate of the sketched vector and
// its exact current value.
type Sample struct {
	Index int64
	Value int64
}

// Sampler is an ℓ0-sampler: a linear sketch over an implicit integer vector
// of length n, fed through additive updates, that can at any time produce a
// coordinate drawn near-uniformly from the vector's nonzero support. It
// never materializes the vector; space is polylogarithmic in n.
//
// The sketch keeps one s-sparse recoverer per subsampling level (level ℓ
// retains each index with probability 2^-ℓ) plus an unsampled 1-sparse
// checksum structure. Whatever the current support size, some level's
// restriction is small enough to recover w.h.p., and sampling uniformly from
// that recovery is a near-uniform sample of the full support.
//
// A Sampler is not safe for concurrent mutation. To build in parallel,
// construct shard Samplers with identical (n, c, seed), feed them
// independently and combine with Merge; linearity makes the result identical
// to sequential feeding.
type Sampler struct {
	n            int64
	c            float64
	seed         uint64
	sparseDegree int

	family *hashFamily
	levels []level
	dense  *recovery.OneSparseRecoverer
	rng    *rand.Rand
}

// NewSampler creates an ℓ0-sampler over [0, n). Failure and non-uniformity
// probabilities are at most n^-c per query. Samplers built with equal
// (n, c, seed) share all hash decisions and can be merged.
func NewSampler(n int64, c float64, seed uint64) (*Sampler, error) {
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}
	if c < 1 {
		return nil, fmt.Errorf("c must be at least 1, got %v", c)
	}

	delta := math.Pow(float64(n), -c)
	if delta >= 0.5 {
		delta = 0.5
	}
	if delta < 1e-18 {
		// the checksum field is clamped near 2^61 anyway; pushing delta
		// further down only inflates the row count
		delta = 1e-18
	}
	sparseDegree := max(8, int(math.Ceil(c*math.Log2(float64(n)))))
	numLevels := internal.Log2Ceil(uint64(n)) + 1

	family := newHashFamily(seed, numLevels)
	levels := make([]level, numLevels)
	for l := 0; l < numLevels; l++ {
		rec, err := recovery.NewSparseRecoverer(n, sparseDegree, delta, deriveSeed(seed, "recoverer", l))
		if err != nil {
			return nil, err
		}
		levels[l] = level{index: l, rec: rec}
	}
	dense, err := recovery.NewOneSparseRecoverer(n, delta, deriveSeed(seed, "dense", 0))
	if err != nil {
		return nil, err
	}

	return &Sampler{
		n:            n,
		c:            c,
		seed:         seed,
		sparseDegree: sparseDegree,
		family:       family,
		levels:       levels,
		dense:        dense,
		rng:          rand.New(rand.NewSource(int64(deriveSeed(seed, "sample", 0)))),
	}, nil
}

// Update applies a_i += delta. Every level runs its own keep test; a zero
// delta is a no-op.
func (s *Sampler) Update(i, delta int64) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, i, s.n)
	}
	if delta == 0 {
		return nil
	}
	if err := s.dense.Update(i, delta); err != nil {
		return err
	}
	for l := range s.levels {
		if err := s.levels[l].update(s.family, i, delta); err != nil {
			return err
		}
	}
	return nil
}

// Sample returns a nonzero coordinate of the sketched vector with its exact
// value, chosen near-uniformly from the support. ok is false when the vector
// is (verifiably) zero, or with probability at most n^-c when every level
// failed to recover. Sample reads the sketch without mutating it, so calls
// may be repeated and interleaved with updates.
func (s *Sampler) Sample() (Sample, bool) {
	// The dense structure settles the two easy regimes exactly: an all-zero
	// counter triple certifies the zero vector, and a verified decode is the
	// support-size-one answer.
	if s.dense.IsZero() {
		return Sample{}, false
	}
	if i, v, ok := s.dense.Decode(); ok {
		return Sample{Index: i, Value: v}, true
	}

	// Scan from the most aggressively subsampled level down: the first level
	// whose restriction decodes has expected live support Θ(s), which is the
	// sweet spot, without ever knowing the true support size.
	for l := len(s.levels) - 1; l >= 0; l-- {
		if e, ok := s.levels[l].trySample(s.rng); ok {
			return Sample{Index: e.Index, Value: e.Value}, true
		}
	}
	return Sample{}, false
}

// N returns the length of the sketched vector.
func (s *Sampler) N() int64 {
	return s.n
}

// NumLevels returns the number of subsampling levels.
func (s *Sampler) NumLevels() int {
	return len(s.levels)
}

// SparseDegree returns s, the per-level recovery threshold.
func (s *Sampler) SparseDegree() int {
	return s.sparseDegree
}

// Seed returns the construction seed.
func (s *Sampler) Seed() uint64 {
	return s.seed
}

func (s *Sampler) String() string {
	return fmt.Sprintf("l0.Sampler{n=%d, c=%v, levels=%d, s=%d}",
		s.n, s.c, len(s.levels), s.sparseDegree)
}

// Merge adds other's updates into s cell-wise. Both samplers must have been
// built with identical (n, c, seed); the result is identical to having
// applied every update to a single sampler.
func (s *Sampler) Merge(other *Sampler) error {
	if err := s.compatible(other); err != nil {
		return err
	}
	if err := s.dense.Merge(other.dense); err != nil {
		return err
	}
	for l := range s.levels {
		if err := s.levels[l].rec.Merge(other.levels[l].rec); err != nil {
			return err
		}
	}
	return nil
}

// Subtract removes other's updates from s, the additive inverse of Merge.
func (s *Sampler) Subtract(other *Sampler) error {
	if err := s.compatible(other); err != nil {
		return err
	}
	if err := s.dense.Subtract(other.dense); err != nil {
		return err
	}
	for l := range s.levels {
		if err := s.levels[l].rec.Subtract(other.levels[l].rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sampler) compatible(other *Sampler) error {
	if s == other {
		return errors.New("cannot combine a sampler with itself")
	}
	if s.n != other.n || s.c != other.c || s.seed != other.seed {
		return errors.New("samplers are incompatible")
	}
	return nil
}
