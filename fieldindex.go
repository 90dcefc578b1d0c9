package middb

import "github.com/RoaringBitmap/roaring/v2"

// FieldIndex is an inverted index from (field name, field value) to the
// set of labels currently carrying that value, backed by a Roaring
// bitmap per posting list rather than a Go set. Grounded on the
// teacher's own LocalBitmap wrapper (metadata/bitmap.go), which uses the
// same package for exactly this kind of ID-set filtering.
//
// Posting lists are keyed by label (a dense uint64 that safely fits
// roaring's uint32 domain at this system's scale) rather than record ID,
// so a lookup and a table's label_to_id map compose directly.
//
// FieldIndex has no lock of its own; the owning Engine's single
// reader/writer lock serializes all access to it.
type FieldIndex struct {
	fields map[string]map[string]*roaring.Bitmap
}

func newFieldIndex() *FieldIndex {
	return &FieldIndex{fields: make(map[string]map[string]*roaring.Bitmap)}
}

// Add records that label carries every (field, value) pair in fields.
func (fi *FieldIndex) Add(label uint64, fields map[string]string) {
	for k, v := range fields {
		vm, ok := fi.fields[k]
		if !ok {
			vm = make(map[string]*roaring.Bitmap)
			fi.fields[k] = vm
		}
		bm, ok := vm[v]
		if !ok {
			bm = roaring.New()
			vm[v] = bm
		}
		bm.Add(uint32(label))
	}
}

// Remove erases label from every (field, value) posting list named by
// fields.
func (fi *FieldIndex) Remove(label uint64, fields map[string]string) {
	for k, v := range fields {
		vm, ok := fi.fields[k]
		if !ok {
			continue
		}
		bm, ok := vm[v]
		if !ok {
			continue
		}
		bm.Remove(uint32(label))
		if bm.IsEmpty() {
			delete(vm, v)
		}
		if len(vm) == 0 {
			delete(fi.fields, k)
		}
	}
}

// Update replaces label's postings under oldFields with postings under
// newFields, diffing rather than blindly rebuilding: a (field, value)
// pair present in both is left untouched.
func (fi *FieldIndex) Update(label uint64, oldFields, newFields map[string]string) {
	for k, v := range oldFields {
		if nv, ok := newFields[k]; ok && nv == v {
			continue
		}
		fi.Remove(label, map[string]string{k: v})
	}
	for k, v := range newFields {
		if ov, ok := oldFields[k]; ok && ov == v {
			continue
		}
		fi.Add(label, map[string]string{k: v})
	}
}

// Lookup returns the labels carrying (field, value). Returns nil if the
// field or value is unknown.
func (fi *FieldIndex) Lookup(field, value string) []uint64 {
	vm, ok := fi.fields[field]
	if !ok {
		return nil
	}
	bm, ok := vm[value]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, uint64(it.Next()))
	}
	return out
}
