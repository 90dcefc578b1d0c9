package middb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableStartsEmpty(t *testing.T) {
	tb := newTable("widgets")
	assert.Equal(t, "widgets", tb.name)
	assert.Empty(t, tb.records)
	assert.Equal(t, 0, tb.dim)
	assert.Nil(t, tb.annIndex)
}

func TestEnsureDimFixesOnFirstCall(t *testing.T) {
	tb := newTable("widgets")
	tb.ensureDim(4)
	assert.Equal(t, 4, tb.dim)

	tb.ensureDim(8)
	assert.Equal(t, 4, tb.dim, "dim must not change once fixed")
}

func TestEnsureANNIndexLazyCreatesOnceDimKnown(t *testing.T) {
	tb := newTable("widgets")
	tb.ensureANNIndex(10)
	assert.Nil(t, tb.annIndex, "no index without a known dimension")

	tb.ensureDim(4)
	tb.ensureANNIndex(10)
	require.NotNil(t, tb.annIndex)
	assert.Equal(t, 4, tb.annIndex.Dim())
}

func TestAllocateLabelIsMonotonic(t *testing.T) {
	tb := newTable("widgets")
	assert.Equal(t, uint64(0), tb.allocateLabel())
	assert.Equal(t, uint64(1), tb.allocateLabel())
	assert.Equal(t, uint64(2), tb.allocateLabel())
}
