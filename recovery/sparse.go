package recovery

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/savelyevno/l0-sampler/internal"
)

// Entry is one recovered coordinate of the sketched vector.
type Entry struct {
	Index int64
	Value int64
}

// SparseRecoverer is an s-sparse recovery sketch: a linear sketch over an
// implicit integer vector of length n that reconstructs the exact set of
// nonzero (index, value) pairs whenever at most s coordinates are nonzero,
// with failure probability at most delta.
//
// Layout follows the classic invertible-sketch construction: rows
// independent 2-wise hash functions, each spreading the n coordinates over
// 2s columns of 1-sparse cells. A coordinate isolated in some row is
// recovered from that row's cell; peeling its contribution out of the other
// rows exposes further isolated cells.
type SparseRecoverer struct {
	n       int64
	s       int
	rows    int
	columns int
	seed    uint64

	p     uint64 // checksum modulus shared by every cell
	hashP uint64 // prime field for the per-row column hashes
	rowA  []uint64
	rowB  []uint64
	cells []oneSparseCell // rows * columns, row-major
}

// NewSparseRecoverer creates an s-sparse recoverer over [0, n) with decode
// failure probability at most delta, deterministic in seed.
func NewSparseRecoverer(n int64, s int, delta float64, seed uint64) (*SparseRecoverer, error) {
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}
	if s < 1 {
		return nil, fmt.Errorf("sparsity threshold must be at least 1, got %d", s)
	}
	if delta <= 0 || delta >= 1 {
		return nil, fmt.Errorf("delta must be in (0, 1), got %v", delta)
	}

	// Each row isolates a given coordinate with probability >= 1/2 while the
	// support fits in s; log2(s/delta) rows push the overall failure below
	// delta.
	rows := int(math.Ceil(math.Log2(float64(s) / delta)))
	if rows < 1 {
		rows = 1
	}
	columns := 2 * s

	p := checksumModulus(n, delta)
	hashP := internal.NextPrime(uint64(max(n, int64(columns))))

	rng := rand.New(rand.NewSource(int64(seed)))
	rowA := make([]uint64, rows)
	rowB := make([]uint64, rows)
	for r := 0; r < rows; r++ {
		rowA[r] = 1 + rng.Uint64()%(hashP-1)
		rowB[r] = rng.Uint64() % hashP
	}

	cells := make([]oneSparseCell, rows*columns)
	for i := range cells {
		cells[i].z = 1 + rng.Uint64()%(p-1)
	}

	return &SparseRecoverer{
		n:       n,
		s:       s,
		rows:    rows,
		columns: columns,
		seed:    seed,
		p:       p,
		hashP:   hashP,
		rowA:    rowA,
		rowB:    rowB,
		cells:   cells,
	}, nil
}

// column maps index i to its cell column in the given row via the row's
// 2-wise hash (a*i + b mod hashP) mod columns.
func (r *SparseRecoverer) column(row int, i int64) int {
	h := (internal.MulMod(r.rowA[row], uint64(i), r.hashP) + r.rowB[row]) % r.hashP
	return int(h % uint64(r.columns))
}

// Update applies a_i += delta to every row's cell for i.
func (r *SparseRecoverer) Update(i, delta int64) error {
	if i < 0 || i >= r.n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, i, r.n)
	}
	if delta == 0 {
		return nil
	}
	for row := 0; row < r.rows; row++ {
		r.cells[row*r.columns+r.column(row, i)].update(i, delta, r.p)
	}
	return nil
}

// Decode attempts full recovery of the sketched vector. On success it
// returns every nonzero (index, value) pair sorted by index; the slice is
// empty for the zero vector. ok is false when the vector could not be
// verified as fully recovered, i.e. it is denser than the sketch can
// resolve. Decode never mutates the sketch, so it can be repeated and
// interleaved with updates freely.
func (r *SparseRecoverer) Decode() ([]Entry, bool) {
	work := make([]oneSparseCell, len(r.cells))
	copy(work, r.cells)

	// A genuine decode removes one coordinate per peel, so the number of
	// peels is bounded by the cell count; exceeding it means a checksum
	// collision injected junk, which the residue check below rejects.
	peels, maxPeels := 0, len(work)
	recovered := make(map[int64]int64)
	for changed := true; changed && peels <= maxPeels; {
		changed = false
		for idx := range work {
			c := &work[idx]
			if c.isZero() {
				continue
			}
			i, v, ok := c.decode(r.p, r.n)
			if !ok {
				continue
			}
			recovered[i] += v
			// Peel i out of every row, the decoding cell included.
			for row := 0; row < r.rows; row++ {
				work[row*r.columns+r.column(row, i)].update(i, -v, r.p)
			}
			peels++
			changed = true
		}
	}

	// Unpeeled residue means some coordinates were never isolated.
	for idx := range work {
		if !work[idx].isZero() {
			return nil, false
		}
	}

	entries := make([]Entry, 0, len(recovered))
	for i, v := range recovered {
		if v != 0 {
			entries = append(entries, Entry{Index: i, Value: v})
		}
	}
	if len(entries) > r.s {
		return nil, false
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Index < entries[b].Index })
	return entries, true
}

// N returns the length of the sketched vector.
func (r *SparseRecoverer) N() int64 {
	return r.n
}

// SparsityThreshold returns s, the largest support size Decode guarantees
// to recover.
func (r *SparseRecoverer) SparsityThreshold() int {
	return r.s
}

// Rows returns the number of hash rows.
func (r *SparseRecoverer) Rows() int {
	return r.rows
}

// Columns returns the number of cells per row.
func (r *SparseRecoverer) Columns() int {
	return r.columns
}

// Seed returns the construction seed.
func (r *SparseRecoverer) Seed() uint64 {
	return r.seed
}

// Merge adds other into r cell-wise. Both must have been built with
// identical (n, s, delta, seed) parameters.
func (r *SparseRecoverer) Merge(other *SparseRecoverer) error {
	if err := r.compatible(other); err != nil {
		return err
	}
	for i := range r.cells {
		r.cells[i].add(&other.cells[i], r.p)
	}
	return nil
}

// Subtract removes other's updates from r, the additive inverse of Merge.
func (r *SparseRecoverer) Subtract(other *SparseRecoverer) error {
	if err := r.compatible(other); err != nil {
		return err
	}
	for i := range r.cells {
		r.cells[i].subtract(&other.cells[i], r.p)
	}
	return nil
}

func (r *SparseRecoverer) compatible(other *SparseRecoverer) error {
	if r == other {
		return errors.New("cannot combine a recoverer with itself")
	}
	if r.n != other.n || r.s != other.s || r.rows != other.rows ||
		r.p != other.p || r.seed != other.seed {
		return errors.New("recoverers are incompatible")
	}
	return nil
}
