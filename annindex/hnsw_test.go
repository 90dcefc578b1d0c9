package annindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(i int64) func(*Options) {
	return func(o *Options) { o.RandomSeed = &i }
}

func TestAddPointAndSearchKNN(t *testing.T) {
	idx := New(3, 0, seed(1))

	vectors := [][]float32{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{10, 10, 10},
	}
	for i, v := range vectors {
		require.NoError(t, idx.AddPoint(v, uint64(i)))
	}

	res, err := idx.SearchKNN([]float32{0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, uint64(0), res[0].Label)
	assert.InDelta(t, 0, res[0].Distance, 1e-6)
}

func TestSearchKNNDimensionMismatch(t *testing.T) {
	idx := New(3, 0, seed(1))
	_, err := idx.SearchKNN([]float32{1, 2}, 1)
	require.Error(t, err)
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestAddPointRejectsWrongDimension(t *testing.T) {
	idx := New(3, 0, seed(1))
	err := idx.AddPoint([]float32{1, 2}, 0)
	require.Error(t, err)
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestAddPointRejectsEmptyVector(t *testing.T) {
	idx := New(3, 0, seed(1))
	err := idx.AddPoint(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyVector)
}

func TestAddPointOverwriteReplacesVector(t *testing.T) {
	idx := New(2, 0, seed(2))

	require.NoError(t, idx.AddPoint([]float32{0, 0}, 0))
	require.NoError(t, idx.AddPoint([]float32{5, 5}, 1))
	require.NoError(t, idx.AddPoint([]float32{9, 9}, 2))

	// Overwrite label 0 to sit near label 2 instead of the origin.
	require.NoError(t, idx.AddPoint([]float32{9, 9}, 0))

	res, err := idx.SearchKNN([]float32{9, 9}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 0, res[0].Distance, 1e-6)
}

func TestOverwriteEntryPointKeepsGraphConnected(t *testing.T) {
	idx := New(2, 0, seed(3))

	for i := 0; i < 20; i++ {
		require.NoError(t, idx.AddPoint([]float32{float32(i), float32(i)}, uint64(i)))
	}

	entry := idx.entryPoint
	require.NoError(t, idx.AddPoint([]float32{100, 100}, entry))

	res, err := idx.SearchKNN([]float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, res, 5)
}

func TestMarkDeletedExcludesFromResults(t *testing.T) {
	idx := New(2, 0, seed(4))

	require.NoError(t, idx.AddPoint([]float32{0, 0}, 0))
	require.NoError(t, idx.AddPoint([]float32{1, 0}, 1))
	require.NoError(t, idx.AddPoint([]float32{2, 0}, 2))

	idx.MarkDeleted(0)

	res, err := idx.SearchKNN([]float32{0, 0}, 3)
	require.NoError(t, err)
	for _, r := range res {
		assert.NotEqual(t, uint64(0), r.Label)
	}
	assert.LessOrEqual(t, len(res), 2)
}

func TestLenExcludesTombstones(t *testing.T) {
	idx := New(2, 0, seed(5))
	require.NoError(t, idx.AddPoint([]float32{0, 0}, 0))
	require.NoError(t, idx.AddPoint([]float32{1, 1}, 1))
	assert.Equal(t, 2, idx.Len())

	idx.MarkDeleted(0)
	assert.Equal(t, 1, idx.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx := New(3, 0, seed(6))
	for i := 0; i < 10; i++ {
		require.NoError(t, idx.AddPoint([]float32{float32(i), float32(i) * 2, float32(i) * 3}, uint64(i)))
	}
	idx.MarkDeleted(3)

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.idx")
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path, 3)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())

	before, err := idx.SearchKNN([]float32{5, 10, 15}, 4)
	require.NoError(t, err)
	after, err := loaded.SearchKNN([]float32{5, 10, 15}, 4)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadRejectsDimensionMismatch(t *testing.T) {
	idx := New(3, 0, seed(7))
	require.NoError(t, idx.AddPoint([]float32{1, 2, 3}, 0))

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.idx")
	require.NoError(t, idx.Save(path))

	_, err := Load(path, 4)
	require.Error(t, err)
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.idx")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	_, err := Load(path, 3)
	require.Error(t, err)
	var corrupt *ErrCorrupt
	require.ErrorAs(t, err, &corrupt)
}

func TestSearchKNNOnEmptyIndex(t *testing.T) {
	idx := New(2, 0, seed(8))
	res, err := idx.SearchKNN([]float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}
