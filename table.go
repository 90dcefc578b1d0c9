package middb

import "github.com/hupe1980/middb/annindex"

// table is the in-memory aggregate for one named table: its records, the
// label<->id bijection, the inverted field index, and the ANN index over
// embeddings. All access is serialized by the owning Engine's lock; table
// itself holds none.
type table struct {
	name string

	records   map[string]*Record
	labelToID map[uint64]string

	fieldIndex *FieldIndex
	annIndex   *annindex.Index

	dim       int
	nextLabel uint64
}

func newTable(name string) *table {
	return &table{
		name:       name,
		records:    make(map[string]*Record),
		labelToID:  make(map[uint64]string),
		fieldIndex: newFieldIndex(),
	}
}

// ensureDim fixes the table's dimensionality the first time an embedding
// arrives. Subsequent embeddings of a different length are rejected by
// the caller before ensureDim is reached.
func (t *table) ensureDim(dim int) {
	if t.dim == 0 {
		t.dim = dim
	}
}

// ensureANNIndex lazily creates the ANN index once dim is known.
func (t *table) ensureANNIndex(capacityHint int, optFns ...func(*annindex.Options)) {
	if t.annIndex == nil && t.dim > 0 {
		t.annIndex = annindex.New(t.dim, capacityHint, optFns...)
	}
}

func (t *table) allocateLabel() uint64 {
	label := t.nextLabel
	t.nextLabel++
	return label
}
