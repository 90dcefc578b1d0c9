package middb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/middb/annindex"
	"github.com/hupe1980/middb/persistence"
	"github.com/hupe1980/middb/writepipeline"
)

// Engine owns every table under a single reader/writer lock and exposes
// the insert/update/delete/query surface. It is process-wide: construct
// one with Open at startup, share the handle across request handlers,
// and Close it on shutdown.
type Engine struct {
	mu sync.RWMutex

	dir    string
	tables map[string]*table

	opts     options
	pipeline *writepipeline.Pipeline
}

// Open creates the storage directory if absent, recovers any existing
// tables from it, starts the write pipeline, and returns a ready Engine.
func Open(ctx context.Context, dir string, optFns ...Option) (*Engine, error) {
	opts := applyOptions(optFns)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("middb: create storage dir: %w", err)
	}

	e := &Engine{
		dir:    dir,
		tables: make(map[string]*table),
		opts:   opts,
	}

	if err := e.recover(ctx); err != nil {
		return nil, err
	}

	e.pipeline = writepipeline.New(opts.batchSize, opts.idleWait, e.applyTask, e.snapshotAll)
	e.pipeline.Start()

	return e, nil
}

// Close drains the write pipeline and forces a final snapshot of every
// table before returning.
func (e *Engine) Close(ctx context.Context) error {
	e.pipeline.Close()
	e.snapshotAll()
	return nil
}

// Insert enqueues an upsert task and returns immediately. The write
// becomes visible to readers once the worker applies it.
func (e *Engine) Insert(ctx context.Context, tableName, id string, fields map[string]string, embedding []float32) error {
	return e.enqueueUpsert(tableName, id, fields, embedding)
}

// Update is semantically identical to Insert; both are upserts.
func (e *Engine) Update(ctx context.Context, tableName, id string, fields map[string]string, embedding []float32) error {
	return e.enqueueUpsert(tableName, id, fields, embedding)
}

func (e *Engine) enqueueUpsert(tableName, id string, fields map[string]string, embedding []float32) error {
	if !isValidTableName(tableName) {
		return &ErrBadRequest{Reason: "invalid table name: " + tableName}
	}
	if id == "" {
		return &ErrBadRequest{Reason: "record id must not be empty"}
	}
	e.pipeline.Enqueue(writepipeline.Task{
		Table:     tableName,
		RecordID:  id,
		Fields:    cloneFields(fields),
		Embedding: cloneEmbedding(embedding),
	})
	return nil
}

// Delete synchronously removes a record if present. Absent table or
// record is a no-op, not an error.
func (e *Engine) Delete(ctx context.Context, tableName, id string) error {
	start := time.Now()

	e.mu.Lock()
	if t, ok := e.tables[tableName]; ok {
		if r, ok := t.records[id]; ok {
			delete(t.records, id)
			delete(t.labelToID, r.Label)
			t.fieldIndex.Remove(r.Label, r.Fields)
			if t.annIndex != nil {
				t.annIndex.MarkDeleted(r.Label)
			}
		}
	}
	e.mu.Unlock()

	duration := time.Since(start)
	if e.opts.metricsCollector != nil {
		e.opts.metricsCollector.RecordDelete(duration, nil)
	}
	if e.opts.logger != nil {
		e.opts.logger.LogDelete(ctx, tableName, id, nil)
	}
	return nil
}

// QueryField returns the record IDs carrying (field, value), sorted
// lexicographically. Unknown table, field, or value yields an empty,
// non-nil slice, not an error.
func (e *Engine) QueryField(ctx context.Context, tableName, field, value string) ([]string, error) {
	start := time.Now()

	e.mu.RLock()
	var ids []string
	if t, ok := e.tables[tableName]; ok {
		ids = e.queryFieldLocked(t, field, value)
	}
	e.mu.RUnlock()

	if ids == nil {
		ids = []string{}
	}

	duration := time.Since(start)
	if e.opts.metricsCollector != nil {
		e.opts.metricsCollector.RecordQueryField(len(ids), duration, nil)
	}
	if e.opts.logger != nil {
		e.opts.logger.LogQueryField(ctx, tableName, field, len(ids), nil)
	}
	return ids, nil
}

func (e *Engine) queryFieldLocked(t *table, field, value string) []string {
	labels := t.fieldIndex.Lookup(field, value)
	if len(labels) == 0 {
		return nil
	}
	ids := make([]string, 0, len(labels))
	for _, label := range labels {
		if id, ok := t.labelToID[label]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// QueryEmbedding returns up to topK record IDs nearest to query by L2
// distance. Missing table or an unpopulated ANN index yields an empty
// slice. A query vector whose length does not match the table's fixed
// dimensionality fails with ErrDimensionMismatch.
func (e *Engine) QueryEmbedding(ctx context.Context, tableName string, query []float32, topK int) ([]string, error) {
	start := time.Now()

	e.mu.RLock()
	var ids []string
	var err error
	if t, ok := e.tables[tableName]; ok {
		ids, err = e.queryEmbeddingLocked(t, query, topK)
	}
	e.mu.RUnlock()

	if err == nil && ids == nil {
		ids = []string{}
	}

	duration := time.Since(start)
	if e.opts.metricsCollector != nil {
		e.opts.metricsCollector.RecordQueryEmbedding(topK, duration, err)
	}
	if e.opts.logger != nil {
		e.opts.logger.LogQueryEmbedding(ctx, tableName, topK, len(ids), err)
	}
	return ids, err
}

func (e *Engine) queryEmbeddingLocked(t *table, query []float32, topK int) ([]string, error) {
	if t.dim > 0 && len(query) != t.dim {
		return nil, translateError(&annindex.ErrDimensionMismatch{Expected: t.dim, Actual: len(query)})
	}
	if t.annIndex == nil || topK <= 0 {
		return nil, nil
	}

	results, err := t.annIndex.SearchKNN(query, topK)
	if err != nil {
		return nil, translateError(err)
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		if id, ok := t.labelToID[r.Label]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// QueryHybrid intersects a field-equality filter with an embedding
// search: it first computes F = QueryField(field, value); if F is empty
// the result is empty. Otherwise it runs an embedding search with
// topK*10 candidates and returns, in ranked order, the first topK whose
// ID is in F.
func (e *Engine) QueryHybrid(ctx context.Context, tableName, field, value string, query []float32, topK int) ([]string, error) {
	start := time.Now()

	e.mu.RLock()
	var ids []string
	var err error
	if t, ok := e.tables[tableName]; ok {
		ids, err = e.queryHybridLocked(t, field, value, query, topK)
	}
	e.mu.RUnlock()

	if err == nil && ids == nil {
		ids = []string{}
	}

	duration := time.Since(start)
	if e.opts.metricsCollector != nil {
		e.opts.metricsCollector.RecordQueryHybrid(topK, duration, err)
	}
	if e.opts.logger != nil {
		e.opts.logger.LogQueryHybrid(ctx, tableName, topK, len(ids), err)
	}
	return ids, err
}

func (e *Engine) queryHybridLocked(t *table, field, value string, query []float32, topK int) ([]string, error) {
	filtered := e.queryFieldLocked(t, field, value)
	if len(filtered) == 0 {
		return nil, nil
	}
	allowed := make(map[string]struct{}, len(filtered))
	for _, id := range filtered {
		allowed[id] = struct{}{}
	}

	candidates, err := e.queryEmbeddingLocked(t, query, topK*10)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, topK)
	for _, id := range candidates {
		if _, ok := allowed[id]; !ok {
			continue
		}
		out = append(out, id)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// applyTask is the write pipeline's per-task apply callback. It acquires
// the engine's exclusive lock for the duration of a single task, lazily
// creates the table and its ANN index, and performs the upsert. A task
// whose embedding length differs from the table's fixed dimension is
// logged as an ErrDimensionMismatch and not applied.
func (e *Engine) applyTask(task writepipeline.Task) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tables[task.Table]
	if !ok {
		t = newTable(task.Table)
		e.tables[task.Table] = t
	}

	if len(task.Embedding) > 0 && t.dim > 0 && len(task.Embedding) != t.dim {
		err := &ErrDimensionMismatch{Expected: t.dim, Actual: len(task.Embedding)}
		if e.opts.logger != nil {
			if _, isUpdate := t.records[task.RecordID]; isUpdate {
				e.opts.logger.LogUpdate(context.Background(), task.Table, task.RecordID, err)
			} else {
				e.opts.logger.LogInsert(context.Background(), task.Table, task.RecordID, err)
			}
		}
		return
	}

	if len(task.Embedding) > 0 {
		t.ensureDim(len(task.Embedding))
		t.ensureANNIndex(e.opts.capacityHint, e.opts.annOptions...)
	}

	existing, isUpdate := t.records[task.RecordID]

	var label uint64
	if isUpdate {
		label = existing.Label
		t.fieldIndex.Update(label, existing.Fields, task.Fields)
	} else {
		label = t.allocateLabel()
		t.fieldIndex.Add(label, task.Fields)
	}

	rec := &Record{
		ID:        task.RecordID,
		Fields:    cloneFields(task.Fields),
		Embedding: cloneEmbedding(task.Embedding),
		Label:     label,
	}
	t.records[task.RecordID] = rec
	t.labelToID[label] = task.RecordID

	if t.annIndex != nil && len(task.Embedding) > 0 {
		_ = t.annIndex.AddPoint(task.Embedding, label)
	}

	duration := time.Since(start)
	if isUpdate {
		if e.opts.metricsCollector != nil {
			e.opts.metricsCollector.RecordUpdate(duration, nil)
		}
		if e.opts.logger != nil {
			e.opts.logger.LogUpdate(context.Background(), task.Table, task.RecordID, nil)
		}
	} else {
		if e.opts.metricsCollector != nil {
			e.opts.metricsCollector.RecordInsert(duration, nil)
		}
		if e.opts.logger != nil {
			e.opts.logger.LogInsert(context.Background(), task.Table, task.RecordID, nil)
		}
	}
}

// snapshotAll writes every table's snapshot and ANN index to disk. It
// takes the shared lock: a flush observes, but never mutates, table
// state.
func (e *Engine) snapshotAll() {
	e.mu.RLock()
	tables := make([]*table, 0, len(e.tables))
	for _, t := range e.tables {
		tables = append(tables, t)
	}
	e.mu.RUnlock()

	for _, t := range tables {
		e.snapshotTable(t)
	}
}

func (e *Engine) snapshotTable(t *table) {
	e.mu.RLock()
	records := make(map[string]persistence.SnapshotRecord, len(t.records))
	for id, r := range t.records {
		records[id] = persistence.SnapshotRecord{
			Fields:    r.Fields,
			Embedding: r.Embedding,
			Label:     r.Label,
		}
	}
	annIndex := t.annIndex
	e.mu.RUnlock()

	start := time.Now()
	jsonPath := filepath.Join(e.dir, t.name+".json")
	err := persistence.SaveSnapshot(jsonPath, records)
	if err == nil && annIndex != nil {
		err = annIndex.Save(filepath.Join(e.dir, t.name+".index"))
	}

	if e.opts.logger != nil {
		e.opts.logger.LogSnapshot(context.Background(), t.name, jsonPath, err)
	}
	if e.opts.metricsCollector != nil {
		e.opts.metricsCollector.RecordSnapshot(len(records), time.Since(start), err)
	}
}

// recover scans dir for *.json snapshots at startup and reconstructs
// each table's records, label_to_id, field_index, dim, next_label and
// (if the sibling .index file is readable) ANN index.
func (e *Engine) recover(ctx context.Context) error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("middb: read storage dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		tableName := strings.TrimSuffix(entry.Name(), ".json")

		records, err := persistence.LoadSnapshot(filepath.Join(e.dir, entry.Name()))
		if err != nil {
			if e.opts.logger != nil {
				e.opts.logger.LogRecovery(ctx, tableName, 0, err)
			}
			continue
		}

		t := newTable(tableName)
		var maxLabel uint64
		haveLabel := false
		for id, rec := range records {
			t.records[id] = &Record{ID: id, Fields: rec.Fields, Embedding: rec.Embedding, Label: rec.Label}
			t.labelToID[rec.Label] = id
			t.fieldIndex.Add(rec.Label, rec.Fields)
			if len(rec.Embedding) > 0 && t.dim == 0 {
				t.dim = len(rec.Embedding)
			}
			if !haveLabel || rec.Label > maxLabel {
				maxLabel = rec.Label
				haveLabel = true
			}
		}
		if haveLabel {
			t.nextLabel = maxLabel + 1
		}

		indexPath := filepath.Join(e.dir, tableName+".index")
		if t.dim > 0 {
			if _, err := os.Stat(indexPath); err == nil {
				idx, err := annindex.Load(indexPath, t.dim)
				if err != nil {
					// IndexCorrupt policy: log and fall back to an
					// absent index, rebuilt from scratch on next insert.
					if e.opts.logger != nil {
						e.opts.logger.LogRecovery(ctx, tableName, len(records), err)
					}
				} else {
					t.annIndex = idx
				}
			}
		}

		e.tables[tableName] = t
		if e.opts.logger != nil {
			e.opts.logger.LogRecovery(ctx, tableName, len(records), nil)
		}
	}

	return nil
}

// TableNames returns the names of every known table, sorted.
func (e *Engine) TableNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isValidTableName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
