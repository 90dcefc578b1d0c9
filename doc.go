// Package middb provides an embedded record store that pairs structured
// field storage with dense-vector embeddings.
//
// A Table holds Records, each of which has a caller-supplied set of string
// fields plus an optional embedding vector. Fields are queryable by exact
// equality through an inverted index; embeddings are queryable by
// approximate nearest neighbor through an HNSW graph (see package
// annindex). The two can be combined into a hybrid query that intersects
// a field filter with a k-NN search.
//
// # Quick Start
//
//	eng, _ := middb.Open(ctx, "./data")
//	eng.Insert(ctx, "docs", "doc-1", map[string]string{"category": "news"}, embedding)
//	hits, _ := eng.QueryEmbedding(ctx, "docs", queryVec, 10)
//
// Tables need no separate creation step: the first Insert or Update
// referencing a table name creates it.
//
// # Durability
//
// Insert and Update enqueue the write onto a background pipeline and
// return immediately; the record becomes visible to Query* calls once the
// pipeline's worker applies it, not before. The worker batches applied
// writes into periodic snapshots on disk. Engine.Close drains the
// pipeline and forces a final snapshot before returning.
//
// # Key Features
//
//   - Exact-match field queries via an inverted index
//   - Approximate k-NN embedding queries via HNSW (package annindex)
//   - Hybrid queries: field filter intersected with k-NN
//   - Soft delete
//   - Crash-safe snapshotting with atomic file replacement
package middb
