package count

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/savelyevno/l0-sampler/internal"
)

// CountSketch approximates an integer vector x of length n under linear
// updates. For the recovered x', Pr[|x_i - x'_i| >= eps * l2norm(x)] <= delta
// for every i.
//
// It keeps a depth x width table of counters; each row pairs a 2-wise index
// hash with a 2-wise ±1 sign hash, and a point query takes the median of the
// per-row signed counters.
type CountSketch struct {
	n     int64
	depth int
	width int
	seed  uint64

	hashP uint64
	rowA  []uint64
	rowB  []uint64
	sgnA  []uint64
	sgnB  []uint64
	table []int64 // depth * width, row-major
}

// NewCountSketch creates a sketch for a vector of length n with scaling
// error eps and failure probability delta, deterministic in seed.
func NewCountSketch(eps, delta float64, n int64, seed uint64) (*CountSketch, error) {
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}
	if eps <= 0 || eps >= 1 {
		return nil, fmt.Errorf("eps must be in (0, 1), got %v", eps)
	}
	if delta <= 0 || delta >= 1 {
		return nil, fmt.Errorf("delta must be in (0, 1), got %v", delta)
	}

	depth, err := SuggestDepth(delta)
	if err != nil {
		return nil, err
	}
	width, err := SuggestWidth(eps)
	if err != nil {
		return nil, err
	}
	width = int(Min(int64(width), n))

	hashP := internal.NextPrime(uint64(max(n, int64(width))))
	rng := rand.New(rand.NewSource(int64(seed)))
	rowA := make([]uint64, depth)
	rowB := make([]uint64, depth)
	sgnA := make([]uint64, depth)
	sgnB := make([]uint64, depth)
	for r := 0; r < depth; r++ {
		rowA[r] = 1 + rng.Uint64()%(hashP-1)
		rowB[r] = rng.Uint64() % hashP
		sgnA[r] = 1 + rng.Uint64()%(hashP-1)
		sgnB[r] = rng.Uint64() % hashP
	}

	return &CountSketch{
		n:     n,
		depth: depth,
		width: width,
		seed:  seed,
		hashP: hashP,
		rowA:  rowA,
		rowB:  rowB,
		sgnA:  sgnA,
		sgnB:  sgnB,
		table: make([]int64, depth*width),
	}, nil
}

func (c *CountSketch) bucket(row int, i int64) int {
	h := (internal.MulMod(c.rowA[row], uint64(i), c.hashP) + c.rowB[row]) % c.hashP
	return int(h % uint64(c.width))
}

func (c *CountSketch) sign(row int, i int64) int64 {
	h := (internal.MulMod(c.sgnA[row], uint64(i), c.hashP) + c.sgnB[row]) % c.hashP
	if h&1 == 0 {
		return -1
	}
	return 1
}

// Update applies x_i += delta.
func (c *CountSketch) Update(i, delta int64) error {
	if i < 0 || i >= c.n {
		return fmt.Errorf("index %d not in [0, %d)", i, c.n)
	}
	for row := 0; row < c.depth; row++ {
		c.table[row*c.width+c.bucket(row, i)] += c.sign(row, i) * delta
	}
	return nil
}

// Estimate returns the point estimate of x_i: the median of the signed
// per-row counters.
func (c *CountSketch) Estimate(i int64) (int64, error) {
	if i < 0 || i >= c.n {
		return 0, fmt.Errorf("index %d not in [0, %d)", i, c.n)
	}
	rowEst := make([]int64, c.depth)
	for row := 0; row < c.depth; row++ {
		rowEst[row] = c.sign(row, i) * c.table[row*c.width+c.bucket(row, i)]
	}
	return internal.Median(rowEst), nil
}

// Recover materializes the full approximated vector. O(n * depth); meant
// for small n or debugging.
func (c *CountSketch) Recover() []int64 {
	out := make([]int64, c.n)
	for i := int64(0); i < c.n; i++ {
		out[i], _ = c.Estimate(i)
	}
	return out
}

// N returns the length of the sketched vector.
func (c *CountSketch) N() int64 {
	return c.n
}

// Depth returns the number of hash rows.
func (c *CountSketch) Depth() int {
	return c.depth
}

// Width returns the number of counters per row.
func (c *CountSketch) Width() int {
	return c.width
}

// Merge adds other into c counter-wise. Both sketches must have been built
// with identical (eps, delta, n, seed) parameters.
func (c *CountSketch) Merge(other *CountSketch) error {
	if c == other {
		return errors.New("cannot merge a sketch with itself")
	}
	if c.n != other.n || c.depth != other.depth || c.width != other.width || c.seed != other.seed {
		return errors.New("sketches are incompatible")
	}
	for i := range c.table {
		c.table[i] += other.table[i]
	}
	return nil
}
