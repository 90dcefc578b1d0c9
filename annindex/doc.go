// Package annindex implements the approximate nearest-neighbour index that
// backs MidDB's embedding search.
//
// Index is a from-scratch Hierarchical Navigable Small World (HNSW) graph
// keyed by caller-chosen integer labels rather than internally assigned
// IDs, so it can sit underneath a table's label allocator. It supports
// insert-or-overwrite at a label, soft delete, k-NN search under squared
// L2 distance, and gob-based save/load.
//
// The graph construction algorithm (layer assignment, greedy descent from
// the entry point, layer-local beam search, simple neighbor truncation) is
// the classic HNSW shape; it favors readability over the segmented/mmap
// production layout larger vector databases use, matching the scale this
// package targets.
package annindex
