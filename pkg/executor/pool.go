package executor

import (
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Sternrassler/influx-stream-client/pkg/logging"
)

// Pool is a bounded worker pool backed by ants. The pool size caps the
// number of queries in flight across every stream sharing the pool; the
// per-stream lookahead window is configured separately on the iterator.
type Pool struct {
	pool *ants.Pool
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive (got %d)", size)
	}

	logger := logging.NewLogger("executor")

	p, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		logger.Error().Interface("panic", v).Msg("Worker panic recovered")
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Pool{pool: p}, nil
}

// Submit schedules task on a pool worker. It blocks while all workers are
// busy and fails once the pool has been released.
func (p *Pool) Submit(task func()) error {
	return p.pool.Submit(task)
}

// Running returns the number of currently busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Cap returns the pool size.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Release shuts the pool down without waiting for running tasks.
func (p *Pool) Release() {
	p.pool.Release()
}

// ReleaseTimeout shuts the pool down, waiting up to d for running tasks
// to finish.
func (p *Pool) ReleaseTimeout(d time.Duration) error {
	return p.pool.ReleaseTimeout(d)
}
