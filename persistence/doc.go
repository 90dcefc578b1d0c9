// Package persistence writes and reads the on-disk snapshot of a table:
// a JSON file mapping record_id to its fields, embedding, and label.
//
// Writes go through the same atomic temp-file-plus-rename shape used
// elsewhere in this codebase for the ANN index blob (see package
// annindex), grounded on the write-to-temp-then-rename idiom.
package persistence
