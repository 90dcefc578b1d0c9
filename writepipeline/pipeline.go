package writepipeline

import (
	"sync"
	"time"
)

// Task is one queued write: an upsert of (table, record) fields and/or
// embedding. Delete is intentionally not a Task; it is applied
// synchronously by the caller.
type Task struct {
	Table     string
	RecordID  string
	Fields    map[string]string
	Embedding []float32
}

// queueCapacity bounds how many tasks may be buffered ahead of the
// worker before Enqueue blocks the caller.
const queueCapacity = 4096

// Pipeline drains queued Tasks in batches on a single worker goroutine,
// calling apply for each task and flush once per batch.
type Pipeline struct {
	tasks chan Task

	batchSize int
	idleWait  time.Duration

	apply func(Task)
	flush func()

	wg sync.WaitGroup
}

// New creates a Pipeline. apply is called once per task, under whatever
// locking discipline the caller's apply function implements; flush is
// called once after each drained batch (including a final partial batch
// drained at shutdown).
func New(batchSize int, idleWait time.Duration, apply func(Task), flush func()) *Pipeline {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		tasks:     make(chan Task, queueCapacity),
		batchSize: batchSize,
		idleWait:  idleWait,
		apply:     apply,
		flush:     flush,
	}
}

// Start launches the worker goroutine. Must be called at most once.
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.run()
}

// Enqueue submits a task. It may block briefly if the internal buffer is
// full, mirroring the brief queue-lock contention a caller would see
// under a condition-variable-based queue.
func (p *Pipeline) Enqueue(t Task) {
	p.tasks <- t
}

// Close stops accepting new tasks, drains whatever is already queued,
// and waits for the worker to exit. Tasks enqueued concurrently with or
// after Close is undefined behavior; callers must stop enqueuing first.
func (p *Pipeline) Close() {
	close(p.tasks)
	p.wg.Wait()
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	for {
		task, ok := <-p.tasks
		if !ok {
			return
		}

		batch := []Task{task}
		closed := false

		timer := time.NewTimer(p.idleWait)
	collect:
		for len(batch) < p.batchSize {
			select {
			case t, ok := <-p.tasks:
				if !ok {
					closed = true
					break collect
				}
				batch = append(batch, t)
			case <-timer.C:
				break collect
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		for _, t := range batch {
			p.apply(t)
		}
		p.flush()

		if closed {
			return
		}
	}
}
