package annindex

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
)

const (
	// minM is the smallest connectivity we allow; M=1 would divide by
	// log(1) below.
	minM = 2

	// DefaultM is the default number of bidirectional links created per
	// inserted point.
	DefaultM = 16

	// DefaultEF is the default size of the dynamic candidate list used
	// during construction and search.
	DefaultEF = 200
)

// Options configures a new Index.
type Options struct {
	// M is the number of bidirectional links per point above layer 0.
	M int

	// EF is the size of the dynamic candidate list used both when
	// inserting new points and when answering k-NN queries (unless a
	// larger k is requested, in which case EF is raised to k for that
	// call).
	EF int

	// RandomSeed makes layer assignment deterministic when non-nil.
	// Intended for tests.
	RandomSeed *int64
}

// DefaultOptions are the options New uses when no functional options are
// supplied.
var DefaultOptions = Options{
	M:  DefaultM,
	EF: DefaultEF,
}

// node is a single point in the graph, addressed by its label.
type node struct {
	vector      []float32
	connections [][]uint64 // connections[layer] = neighbor labels at that layer
	layer       int
}

// Index is a Hierarchical Navigable Small World graph keyed by
// caller-chosen labels. It implements the ANN index contract MidDB's
// storage engine depends on: AddPoint, MarkDeleted, SearchKNN, Save,
// Load. All exported methods are safe for concurrent use; SearchKNN may
// run concurrently with other SearchKNN calls and is also safe to call
// while the caller holds only a shared (read) lock at the engine layer,
// since all graph mutation here is serialized behind mu.
type Index struct {
	mu sync.RWMutex

	dim  int
	m    int
	m0   int
	ef   int
	ml   float64
	rng  *rand.Rand

	nodes      []*node
	tombstones *bitset.BitSet

	hasEntry   bool
	entryPoint uint64
	maxLevel   int
}

// New creates an empty Index for vectors of the given dimension.
// capacityHint pre-sizes internal storage; it is not a hard limit.
func New(dim int, capacityHint int, optFns ...func(*Options)) *Index {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.M < minM {
		opts.M = minM
	}
	if opts.EF < 1 {
		opts.EF = DefaultEF
	}

	rng := newDefaultRand()
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	}

	if capacityHint <= 0 {
		capacityHint = 1024
	}

	return &Index{
		dim:        dim,
		m:          opts.M,
		m0:         2 * opts.M,
		ef:         opts.EF,
		ml:         1 / math.Log(float64(opts.M)),
		rng:        rng,
		nodes:      make([]*node, 0, capacityHint),
		tombstones: newTombstoneSet(capacityHint),
	}
}

func newDefaultRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func newTombstoneSet(capacityHint int) *bitset.BitSet {
	if capacityHint <= 0 {
		capacityHint = 1
	}
	return bitset.New(uint(capacityHint))
}

// Dim returns the configured vector dimension.
func (idx *Index) Dim() int { return idx.dim }

// Len returns the number of live (not soft-deleted) points.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := 0
	for label, n := range idx.nodes {
		if n != nil && !idx.tombstones.Test(uint(label)) {
			count++
		}
	}
	return count
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (idx *Index) randomLayer() int {
	return int(math.Floor(-math.Log(idx.rng.Float64()) * idx.ml))
}

// AddPoint inserts a vector at label, or overwrites the point already
// living at label if one exists. Labels are caller-chosen: AddPoint
// extends the graph by one slot (label == current length), replaces an
// existing slot (label < current length), or, for a label past the end,
// leaves empty slots for the skipped labels before appending.
func (idx *Index) AddPoint(vec []float32, label uint64) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}
	if len(vec) != idx.dim {
		return &ErrDimensionMismatch{Expected: idx.dim, Actual: len(vec)}
	}

	vecCopy := make([]float32, len(vec))
	copy(vecCopy, vec)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	switch {
	case label < uint64(len(idx.nodes)):
		idx.overwriteLocked(vecCopy, label)
	case label == uint64(len(idx.nodes)):
		idx.insertLocked(vecCopy, label)
	default:
		// Labels normally arrive dense; grow defensively rather than panic.
		for uint64(len(idx.nodes)) < label {
			idx.nodes = append(idx.nodes, nil)
		}
		idx.insertLocked(vecCopy, label)
	}

	idx.tombstones.Clear(uint(label))

	return nil
}

// insertLocked appends a brand-new node at label == len(nodes). Caller
// holds mu.
func (idx *Index) insertLocked(vec []float32, label uint64) {
	n := &node{
		vector: vec,
		layer:  idx.randomLayer(),
	}
	n.connections = make([][]uint64, n.layer+1)

	if !idx.hasEntry {
		idx.nodes = append(idx.nodes, n)
		idx.hasEntry = true
		idx.entryPoint = label
		idx.maxLevel = n.layer
		return
	}

	entry, entryDist := idx.greedyDescend(vec, n.layer)

	for level := min(n.layer, idx.maxLevel); level >= 0; level-- {
		candidates := idx.searchLayerAll(vec, entry, entryDist, idx.ef, level)
		n.connections[level] = selectNeighbors(candidates, idx.m)
	}
	idx.nodes = append(idx.nodes, n)

	maxConnAtLevel := func(level int) int {
		if level == 0 {
			return idx.m0
		}
		return idx.m
	}
	for level := min(n.layer, idx.maxLevel); level >= 0; level-- {
		for _, neighbor := range n.connections[level] {
			idx.link(neighbor, label, level, maxConnAtLevel(level))
		}
	}

	if n.layer > idx.maxLevel {
		idx.maxLevel = n.layer
		idx.entryPoint = label
	}
}

// overwriteLocked replaces the point at an existing label with a fresh
// vector, re-running graph construction for it in place, so an updated
// point keeps its label. Stale inbound edges from other nodes are left
// as-is: distances are always computed against the currently stored
// vector, so a stale edge still lands on correct (if not perfectly
// placed) data.
func (idx *Index) overwriteLocked(vec []float32, label uint64) {
	n := &node{
		vector: vec,
		layer:  idx.randomLayer(),
	}
	n.connections = make([][]uint64, n.layer+1)

	// If label was the entry point, its outgoing edges are about to be
	// discarded along with its old vector, so descent from it would find
	// nothing. Re-anchor to another node first.
	if idx.entryPoint == label {
		if alt, ok := idx.anyOtherNode(label); ok {
			idx.entryPoint = alt
			idx.maxLevel = idx.maxLayerExcluding(label)
		} else {
			// This label is the only point the graph has ever held.
			idx.nodes[label] = n
			idx.maxLevel = n.layer
			return
		}
	}

	idx.nodes[label] = n

	entry, entryDist := idx.greedyDescend(vec, n.layer)

	maxConnAtLevel := func(level int) int {
		if level == 0 {
			return idx.m0
		}
		return idx.m
	}
	for level := min(n.layer, idx.maxLevel); level >= 0; level-- {
		candidates := idx.searchLayerAll(vec, entry, entryDist, idx.ef, level)
		selected := selectNeighbors(candidates, idx.m)
		n.connections[level] = selected
		for _, neighbor := range selected {
			if neighbor != label {
				idx.link(neighbor, label, level, maxConnAtLevel(level))
			}
		}
	}

	if n.layer > idx.maxLevel {
		idx.maxLevel = n.layer
		idx.entryPoint = label
	}
}

// anyOtherNode returns a label of some node other than exclude, if any
// exists (live or soft-deleted; soft-deleted nodes still anchor the
// graph's connectivity).
func (idx *Index) anyOtherNode(exclude uint64) (uint64, bool) {
	for label, n := range idx.nodes {
		if uint64(label) == exclude || n == nil {
			continue
		}
		return uint64(label), true
	}
	return 0, false
}

// maxLayerExcluding recomputes the graph's max level, ignoring exclude.
func (idx *Index) maxLayerExcluding(exclude uint64) int {
	max := 0
	for label, n := range idx.nodes {
		if uint64(label) == exclude || n == nil {
			continue
		}
		if n.layer > max {
			max = n.layer
		}
	}
	return max
}

// MarkDeleted soft-deletes label: subsequent SearchKNN calls will not
// return it, but its edges remain in the graph for connectivity.
func (idx *Index) MarkDeleted(label uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if label >= uint64(len(idx.nodes)) || idx.nodes[label] == nil {
		return
	}
	idx.tombstones.Set(uint(label))
}

// Result is a single k-NN hit.
type Result struct {
	Label    uint64
	Distance float32
}

// SearchKNN returns up to k live points nearest to query under squared
// L2 distance, ordered ascending. It may return fewer than k if the
// graph holds fewer live points. An empty or uninitialized index returns
// an empty result and a nil error.
func (idx *Index) SearchKNN(query []float32, k int) ([]Result, error) {
	if len(query) != idx.dim {
		return nil, &ErrDimensionMismatch{Expected: idx.dim, Actual: len(query)}
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.hasEntry {
		return nil, nil
	}

	ef := idx.ef
	if k > ef {
		ef = k
	}

	entry, entryDist := idx.greedyDescend(query, 0)
	results := idx.searchLayerFiltered(query, entry, entryDist, ef, 0)

	out := make([]Result, 0, results.Len())
	for results.Len() > 0 {
		it := results.items[0]
		out = append(out, Result{Label: it.label, Distance: it.distance})
		heapPop(results)
	}
	// results is a max-heap; reverse to ascending order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// greedyDescend walks from the current entry point down to (but not
// including) targetLayer, always moving to the closest neighbor seen,
// the classic HNSW upper-layer descent. It returns the best label/dist
// found once at or above targetLayer.
func (idx *Index) greedyDescend(query []float32, targetLayer int) (uint64, float32) {
	current := idx.entryPoint
	currentDist := squaredL2(query, idx.nodes[current].vector)

	for level := idx.maxLevel; level > targetLayer; level-- {
		improved := true
		for improved {
			improved = false
			n := idx.nodes[current]
			if level >= len(n.connections) {
				continue
			}
			for _, neighbor := range n.connections[level] {
				if idx.nodes[neighbor] == nil {
					continue
				}
				d := squaredL2(query, idx.nodes[neighbor].vector)
				if d < currentDist {
					current = neighbor
					currentDist = d
					improved = true
				}
			}
		}
	}

	return current, currentDist
}

// searchLayerAll performs a beam search at level, considering every
// visited node (including soft-deleted ones) as a linking candidate.
// Used during construction, where deleted nodes still help connectivity.
func (idx *Index) searchLayerAll(query []float32, entry uint64, entryDist float32, ef int, level int) *priorityQueue {
	return idx.searchLayer(query, entry, entryDist, ef, level, false)
}

// searchLayerFiltered is like searchLayerAll but excludes soft-deleted
// nodes from the returned result set (though it still traverses through
// them). Used to answer SearchKNN.
func (idx *Index) searchLayerFiltered(query []float32, entry uint64, entryDist float32, ef int, level int) *priorityQueue {
	return idx.searchLayer(query, entry, entryDist, ef, level, true)
}

func (idx *Index) searchLayer(query []float32, entry uint64, entryDist float32, ef int, level int, filterDeleted bool) *priorityQueue {
	visited := bitset.New(uint(len(idx.nodes)))
	visited.Set(uint(entry))

	candidates := newQueue(false)
	heapPush(candidates, &item{label: entry, distance: entryDist})

	results := newQueue(true)
	if !filterDeleted || !idx.tombstones.Test(uint(entry)) {
		heapPush(results, &item{label: entry, distance: entryDist})
	}

	for candidates.Len() > 0 {
		c := heapPop(candidates)
		if results.Len() >= ef && c.distance > results.top().distance {
			break
		}

		n := idx.nodes[c.label]
		if n == nil || level >= len(n.connections) {
			continue
		}

		for _, neighbor := range n.connections[level] {
			if visited.Test(uint(neighbor)) {
				continue
			}
			visited.Set(uint(neighbor))

			neighborNode := idx.nodes[neighbor]
			if neighborNode == nil {
				continue
			}

			d := squaredL2(query, neighborNode.vector)
			if results.Len() < ef || d < results.top().distance {
				heapPush(candidates, &item{label: neighbor, distance: d})
				if !filterDeleted || !idx.tombstones.Test(uint(neighbor)) {
					heapPush(results, &item{label: neighbor, distance: d})
					if results.Len() > ef {
						heapPop(results)
					}
				}
			}
		}
	}

	return results
}

// link adds a directed edge from source to target at level, pruning
// source's connections down to maxConn by keeping the closest points if
// it would otherwise exceed the limit.
func (idx *Index) link(source, target uint64, level int, maxConn int) {
	n := idx.nodes[source]
	if n == nil || level >= len(n.connections) {
		return
	}

	for _, existing := range n.connections[level] {
		if existing == target {
			return
		}
	}

	if len(n.connections[level]) < maxConn {
		n.connections[level] = append(n.connections[level], target)
		return
	}

	candidates := newQueue(true)
	for _, c := range n.connections[level] {
		if idx.nodes[c] == nil {
			continue
		}
		heapPush(candidates, &item{label: c, distance: squaredL2(n.vector, idx.nodes[c].vector)})
	}
	heapPush(candidates, &item{label: target, distance: squaredL2(n.vector, idx.nodes[target].vector)})

	selected := selectNeighbors(candidates, maxConn)
	n.connections[level] = selected
}

// selectNeighbors drains a max-heap of candidates down to at most m
// entries, keeping the m closest, and returns their labels ordered
// closest-first.
func selectNeighbors(candidates *priorityQueue, m int) []uint64 {
	for candidates.Len() > m {
		heapPop(candidates)
	}
	out := make([]uint64, candidates.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heapPop(candidates).label
	}
	return out
}
