package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOneSparseRecovererValidation(t *testing.T) {
	_, err := NewOneSparseRecoverer(0, 0.01, 1)
	assert.Error(t, err)
	_, err = NewOneSparseRecoverer(10, 0, 1)
	assert.Error(t, err)
	_, err = NewOneSparseRecoverer(10, 1.5, 1)
	assert.Error(t, err)

	r, err := NewOneSparseRecoverer(10, 0.01, 1)
	assert.NoError(t, err)
	assert.NotNil(t, r)
	assert.Equal(t, int64(10), r.N())
}

func TestOneSparseSingleton(t *testing.T) {
	r, err := NewOneSparseRecoverer(1000, 0.001, 42)
	require.NoError(t, err)

	_, _, ok := r.Decode()
	assert.False(t, ok)
	assert.True(t, r.IsZero())

	require.NoError(t, r.Update(17, 5))
	i, v, ok := r.Decode()
	assert.True(t, ok)
	assert.Equal(t, int64(17), i)
	assert.Equal(t, int64(5), v)

	// accumulate on the same index, still a singleton
	require.NoError(t, r.Update(17, -2))
	i, v, ok = r.Decode()
	assert.True(t, ok)
	assert.Equal(t, int64(17), i)
	assert.Equal(t, int64(3), v)
}

func TestOneSparseEdgeIndexes(t *testing.T) {
	for _, idx := range []int64{0, 999} {
		r, err := NewOneSparseRecoverer(1000, 0.001, 7)
		require.NoError(t, err)
		require.NoError(t, r.Update(idx, -4))
		i, v, ok := r.Decode()
		assert.True(t, ok)
		assert.Equal(t, idx, i)
		assert.Equal(t, int64(-4), v)
	}
}

func TestOneSparseRejectsDense(t *testing.T) {
	// with two or more live coordinates the checksum test should reject
	for seed := uint64(0); seed < 50; seed++ {
		r, err := NewOneSparseRecoverer(1000, 0.001, seed)
		require.NoError(t, err)
		// chosen so iota/phi lands on the in-range phantom index 15,
		// leaving the checksum as the only line of defense
		require.NoError(t, r.Update(10, 1))
		require.NoError(t, r.Update(20, 1))
		_, _, ok := r.Decode()
		assert.False(t, ok, "seed %d verified a 2-sparse vector", seed)
	}
}

func TestOneSparseCancellation(t *testing.T) {
	r, err := NewOneSparseRecoverer(1000, 0.001, 9)
	require.NoError(t, err)
	fresh, err := NewOneSparseRecoverer(1000, 0.001, 9)
	require.NoError(t, err)

	require.NoError(t, r.Update(3, 5))
	require.NoError(t, r.Update(3, -5))
	assert.True(t, r.IsZero())
	assert.Equal(t, fresh.cell, r.cell)

	_, _, ok := r.Decode()
	assert.False(t, ok)
}

func TestOneSparseInvalidIndex(t *testing.T) {
	r, err := NewOneSparseRecoverer(10, 0.01, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Update(-1, 1), ErrInvalidIndex)
	assert.ErrorIs(t, r.Update(10, 1), ErrInvalidIndex)
	assert.NoError(t, r.Update(9, 1))
}

func TestOneSparseMergeSubtract(t *testing.T) {
	a, err := NewOneSparseRecoverer(1000, 0.001, 5)
	require.NoError(t, err)
	b, err := NewOneSparseRecoverer(1000, 0.001, 5)
	require.NoError(t, err)
	seq, err := NewOneSparseRecoverer(1000, 0.001, 5)
	require.NoError(t, err)

	require.NoError(t, a.Update(40, 7))
	require.NoError(t, b.Update(40, -3))
	require.NoError(t, seq.Update(40, 7))
	require.NoError(t, seq.Update(40, -3))

	require.NoError(t, a.Merge(b))
	assert.Equal(t, seq.cell, a.cell)

	i, v, ok := a.Decode()
	assert.True(t, ok)
	assert.Equal(t, int64(40), i)
	assert.Equal(t, int64(4), v)

	require.NoError(t, a.Subtract(b))
	i, v, ok = a.Decode()
	assert.True(t, ok)
	assert.Equal(t, int64(40), i)
	assert.Equal(t, int64(7), v)
}

func TestOneSparseMergeIncompatible(t *testing.T) {
	a, _ := NewOneSparseRecoverer(1000, 0.001, 5)
	b, _ := NewOneSparseRecoverer(1000, 0.001, 6)
	c, _ := NewOneSparseRecoverer(999, 0.001, 5)

	assert.Error(t, a.Merge(a))
	assert.Error(t, a.Merge(b))
	assert.Error(t, a.Merge(c))
}

func TestChecksumModulus(t *testing.T) {
	p := checksumModulus(1000, 0.001)
	assert.True(t, p >= 1<<20)
	assert.True(t, p < 1<<62)

	// huge target clamps below MulMod's exact range
	p = checksumModulus(1<<40, 1e-18)
	assert.True(t, p >= 1<<61)
	assert.True(t, p < 1<<62)
}
