package recovery

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/savelyevno/l0-sampler/internal"
)

// ErrInvalidIndex is returned by Update when the index is outside [0, n).
var ErrInvalidIndex = errors.New("update index out of range")

// oneSparseCell holds the three linear counters of a 1-sparse recoverer:
//
//	iota = sum (i+1) * a_i
//	phi  = sum a_i
//	tau  = sum a_i * z^(i+1) mod p
//
// If the underlying (restricted) vector has exactly one nonzero coordinate i,
// then iota/phi = i+1 and tau = phi * z^(i+1) mod p. A cell holding two or
// more coordinates passes that test with probability at most n/p over the
// random choice of z.
type oneSparseCell struct {
	z    uint64
	iota int64
	phi  int64
	tau  uint64
}

func (c *oneSparseCell) update(i, delta int64, p uint64) {
	c.iota += (i + 1) * delta
	c.phi += delta
	c.tau = (c.tau + internal.MulMod(internal.ModSigned(delta, p), internal.PowMod(c.z, uint64(i)+1, p), p)) % p
}

func (c *oneSparseCell) isZero() bool {
	return c.iota == 0 && c.phi == 0 && c.tau == 0
}

// decode returns the single (index, value) pair held by the cell, if the
// cell is a verified singleton.
func (c *oneSparseCell) decode(p uint64, n int64) (int64, int64, bool) {
	if c.phi == 0 || c.iota%c.phi != 0 {
		return 0, 0, false
	}
	q := c.iota / c.phi
	if q < 1 || q > n {
		return 0, 0, false
	}
	want := internal.MulMod(internal.ModSigned(c.phi, p), internal.PowMod(c.z, uint64(q), p), p)
	if c.tau != want {
		return 0, 0, false
	}
	return q - 1, c.phi, true
}

func (c *oneSparseCell) add(other *oneSparseCell, p uint64) {
	c.iota += other.iota
	c.phi += other.phi
	c.tau = (c.tau + other.tau) % p
}

func (c *oneSparseCell) subtract(other *oneSparseCell, p uint64) {
	c.iota -= other.iota
	c.phi -= other.phi
	c.tau = (c.tau + p - other.tau) % p
}

// OneSparseRecoverer is an exact 1-sparse recovery sketch over an implicit
// integer vector of length n, updated through linear increments. If the
// vector holds exactly one nonzero coordinate, Decode returns it; a vector
// with two or more nonzero coordinates is rejected with probability at
// least 1 - delta.
//
// Counter arithmetic is exact int64; callers must keep |sum (i+1)*delta|
// within int64 range.
type OneSparseRecoverer struct {
	n    int64
	p    uint64
	seed uint64
	cell oneSparseCell
}

// NewOneSparseRecoverer creates a 1-sparse recoverer over [0, n) with false
// verification probability at most delta. Identical (n, delta, seed)
// parameters yield identical internal randomness, which is what makes two
// recoverers mergeable.
func NewOneSparseRecoverer(n int64, delta float64, seed uint64) (*OneSparseRecoverer, error) {
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}
	if delta <= 0 || delta >= 1 {
		return nil, fmt.Errorf("delta must be in (0, 1), got %v", delta)
	}

	p := checksumModulus(n, delta)
	rng := rand.New(rand.NewSource(int64(seed)))
	return &OneSparseRecoverer{
		n:    n,
		p:    p,
		seed: seed,
		cell: oneSparseCell{z: 1 + rng.Uint64()%(p-1)},
	}, nil
}

// Update applies a_i += delta.
func (r *OneSparseRecoverer) Update(i, delta int64) error {
	if i < 0 || i >= r.n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, i, r.n)
	}
	if delta == 0 {
		return nil
	}
	r.cell.update(i, delta, r.p)
	return nil
}

// Decode returns the unique nonzero (index, value) pair if the sketched
// vector is verified 1-sparse. ok is false when the vector is empty, denser
// than 1-sparse, or fails the checksum test.
func (r *OneSparseRecoverer) Decode() (index, value int64, ok bool) {
	return r.cell.decode(r.p, r.n)
}

// IsZero reports whether every counter is exactly zero, which holds with
// certainty for the zero vector and with probability at most delta otherwise.
func (r *OneSparseRecoverer) IsZero() bool {
	return r.cell.isZero()
}

// N returns the length of the sketched vector.
func (r *OneSparseRecoverer) N() int64 {
	return r.n
}

// Seed returns the construction seed.
func (r *OneSparseRecoverer) Seed() uint64 {
	return r.seed
}

// Merge adds other into r. Both must have been built with identical
// (n, delta, seed) parameters.
func (r *OneSparseRecoverer) Merge(other *OneSparseRecoverer) error {
	if err := r.compatible(other); err != nil {
		return err
	}
	r.cell.add(&other.cell, r.p)
	return nil
}

// Subtract removes other's updates from r, the additive inverse of Merge.
func (r *OneSparseRecoverer) Subtract(other *OneSparseRecoverer) error {
	if err := r.compatible(other); err != nil {
		return err
	}
	r.cell.subtract(&other.cell, r.p)
	return nil
}

func (r *OneSparseRecoverer) compatible(other *OneSparseRecoverer) error {
	if r == other {
		return errors.New("cannot combine a recoverer with itself")
	}
	if r.n != other.n || r.p != other.p || r.seed != other.seed {
		return errors.New("recoverers are incompatible")
	}
	return nil
}

// checksumModulus picks the prime modulus for the tau checksum: at least
// n/delta so that a non-singleton cell verifies with probability <= delta,
// clamped to keep products inside MulMod's exact range.
func checksumModulus(n int64, delta float64) uint64 {
	const (
		minTarget = uint64(1) << 30
		maxTarget = uint64(1) << 61
	)
	target := float64(n) / delta
	t := minTarget
	switch {
	case target >= float64(maxTarget):
		t = maxTarget
	case target > float64(minTarget):
		t = uint64(target)
	}
	return internal.NextPrime(t)
}
