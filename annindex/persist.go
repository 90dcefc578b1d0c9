package annindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// persistedNode is the gob-encodable shape of a node.
type persistedNode struct {
	Vector      []float32
	Connections [][]uint64
	Layer       int
}

// persistedIndex is the gob-encodable shape of the whole graph.
type persistedIndex struct {
	Dim        int
	M          int
	M0         int
	EF         int
	ML         float64
	HasEntry   bool
	EntryPoint uint64
	MaxLevel   int
	Nodes      []*persistedNode
	Tombstones []byte
}

// Save serializes the index to path, writing to a temporary file in the
// same directory and renaming over the target so a reader never observes
// a partially-written blob. Grounded on the same atomic-write shape the
// table snapshot writer uses (see persistence.SaveToFile).
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p := persistedIndex{
		Dim:        idx.dim,
		M:          idx.m,
		M0:         idx.m0,
		EF:         idx.ef,
		ML:         idx.ml,
		HasEntry:   idx.hasEntry,
		EntryPoint: idx.entryPoint,
		MaxLevel:   idx.maxLevel,
		Nodes:      make([]*persistedNode, len(idx.nodes)),
	}
	for i, n := range idx.nodes {
		if n == nil {
			continue
		}
		p.Nodes[i] = &persistedNode{Vector: n.vector, Connections: n.connections, Layer: n.layer}
	}

	tombstones, err := idx.tombstones.MarshalBinary()
	if err != nil {
		return fmt.Errorf("annindex: marshal tombstones: %w", err)
	}
	p.Tombstones = tombstones

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err := gob.NewEncoder(buf).Encode(&p); err != nil {
		return fmt.Errorf("annindex: encode: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// Load reads the graph serialized at path. dim is the dimension the
// caller expects; a mismatch is reported as ErrDimensionMismatch rather
// than silently loading incompatible data.
func Load(path string, dim int) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var p persistedIndex
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&p); err != nil {
		return nil, &ErrCorrupt{Path: path, Err: err}
	}

	if p.Dim != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: p.Dim}
	}

	idx := &Index{
		dim:        p.Dim,
		m:          p.M,
		m0:         p.M0,
		ef:         p.EF,
		ml:         p.ML,
		hasEntry:   p.HasEntry,
		entryPoint: p.EntryPoint,
		maxLevel:   p.MaxLevel,
		nodes:      make([]*node, len(p.Nodes)),
		rng:        newDefaultRand(),
		tombstones: newTombstoneSet(len(p.Nodes)),
	}
	for i, pn := range p.Nodes {
		if pn == nil {
			continue
		}
		idx.nodes[i] = &node{vector: pn.Vector, connections: pn.Connections, layer: pn.Layer}
	}

	if err := idx.tombstones.UnmarshalBinary(p.Tombstones); err != nil {
		return nil, &ErrCorrupt{Path: path, Err: err}
	}

	return idx, nil
}
