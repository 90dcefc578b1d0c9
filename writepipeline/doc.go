// Package writepipeline batches asynchronous write tasks bound for a
// Table onto a single background worker.
//
// The queue is modeled as a buffered channel of Task consumed by exactly
// one goroutine, rather than a hand-rolled condition-variable protocol:
// this is the natural Go shape for "single producer(s), single consumer,
// bounded latency" and removes the manual wait/notify bookkeeping that
// shape would otherwise need.
package writepipeline
