package middb

// Record is a single row in a Table: a set of free-form string fields
// plus an optional embedding, addressed by a caller-supplied ID that is
// unique within its table.
type Record struct {
	// ID is the caller-supplied record identifier, unique within the
	// owning table.
	ID string

	// Fields is a free-form string-to-string map. No schema is enforced.
	Fields map[string]string

	// Embedding is the dense vector associated with this record, or nil
	// if the record was inserted without one. Its length must equal the
	// owning table's dim once dim is fixed.
	Embedding []float32

	// Label is the surrogate integer key this record occupies in the
	// table's ANN index. Assigned once at first insert and never reused,
	// even across updates.
	Label uint64
}

func cloneFields(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func cloneEmbedding(vec []float32) []float32 {
	if vec == nil {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
