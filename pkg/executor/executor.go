// Package executor provides the worker-pool capability used for
// concurrent prefetch. Pools are constructed and owned by the caller and
// passed to the streams that need them; nothing in this module creates a
// hidden process-wide pool.
package executor

// Executor schedules tasks for asynchronous execution.
type Executor interface {
	// Submit schedules task for execution. It blocks while all workers
	// are busy and returns an error once the executor is shut down.
	Submit(task func()) error
}

// Inline is the degenerate executor: it runs every task synchronously on
// the calling goroutine. Useful in tests and in wiring that wants the
// pipeline shape without concurrency.
type Inline struct{}

// Submit runs task immediately.
func (Inline) Submit(task func()) error {
	task()
	return nil
}
