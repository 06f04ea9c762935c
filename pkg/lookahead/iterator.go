package lookahead

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/influx-stream-client/pkg/executor"
	"github.com/Sternrassler/influx-stream-client/pkg/logging"
)

// ErrOutOfOrder reports that a prefetch task observed a start count that
// does not match its own sequence number. It indicates a bug in the
// pipeline bookkeeping, not a recoverable condition.
var ErrOutOfOrder = errors.New("lookahead task started out of order")

// DefaultParallelism is the window size used when Options.Parallelism is
// not set.
const DefaultParallelism = 4

// Fetch produces the element with the given zero-based sequence number.
// io.EOF means the sequence ended at or before seq. Calls run on pool
// workers; the iterator serializes task starts in sequence order, but the
// fetch bodies themselves overlap, so Fetch must be safe for concurrent
// calls with distinct sequence numbers.
type Fetch[T any] func(seq int) (T, error)

// Options configures an Iterator.
type Options struct {
	// Parallelism is the lookahead window size: the number of fetch
	// tasks kept in flight. Defaults to DefaultParallelism.
	Parallelism int

	// WarmStart fills the window at construction instead of on the
	// first Next call.
	WarmStart bool
}

// Iterator delivers fetched elements strictly in sequence order while up
// to Parallelism fetches run concurrently.
type Iterator[T any] struct {
	exec  executor.Executor
	fetch Fetch[T]
	par   int
	log   zerolog.Logger

	pending []*task[T]    // submission-ordered window, oldest first
	nextSeq int           // sequence number of the next task to submit
	release chan struct{} // start gate for the next submitted task
	err     error         // terminal state, sticky once set

	// runCount is the number of tasks that have started. It is only
	// touched by the task holding the start gate, so accesses are
	// ordered by the gate chain.
	runCount int
}

type task[T any] struct {
	seq    int
	result chan taskResult[T]
}

type taskResult[T any] struct {
	val T
	err error
}

// New creates an iterator over fetch using the given executor.
func New[T any](exec executor.Executor, fetch Fetch[T], opts Options) (*Iterator[T], error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetch function is required")
	}

	par := opts.Parallelism
	if par <= 0 {
		par = DefaultParallelism
	}

	it := &Iterator[T]{
		exec:    exec,
		fetch:   fetch,
		par:     par,
		log:     logging.NewLogger("lookahead"),
		release: make(chan struct{}),
	}
	// The first task has no predecessor to wait for.
	close(it.release)

	if opts.WarmStart {
		it.fill()
		if it.err != nil {
			return nil, it.err
		}
	}

	return it, nil
}

// Next returns the next element in sequence order. It blocks until the
// oldest outstanding fetch completes, then tops the window back up. io.EOF
// marks the end of the sequence; any other error is terminal. Both are
// sticky: the window is dropped and every later call returns the same
// result.
func (it *Iterator[T]) Next() (T, error) {
	var zero T

	if it.err != nil {
		return zero, it.err
	}

	it.fill()
	if len(it.pending) == 0 {
		return zero, it.err
	}

	head := it.pending[0]
	start := time.Now()
	res := <-head.result
	wait := time.Since(start)

	lookaheadWaitSeconds.Observe(wait.Seconds())
	it.log.Debug().
		Int("seq", head.seq).
		Dur("wait", wait).
		Msg("Waited for prefetch task")

	it.pending = it.pending[1:]

	if res.err != nil {
		it.fail(res.err)
		return zero, res.err
	}

	it.fill()
	return res.val, nil
}

// fill submits tasks until the window is full or the iterator is in a
// terminal state. A failed submission is itself terminal.
func (it *Iterator[T]) fill() {
	for it.err == nil && len(it.pending) < it.par {
		t := &task[T]{
			seq:    it.nextSeq,
			result: make(chan taskResult[T], 1),
		}

		gate := it.release
		next := make(chan struct{})
		it.release = next

		if err := it.exec.Submit(it.run(t, gate, next)); err != nil {
			it.release = gate
			it.fail(fmt.Errorf("submit prefetch task %d: %w", t.seq, err))
			return
		}

		it.nextSeq++
		it.pending = append(it.pending, t)
	}
}

// run builds the task body. The gate chain hands each task an exclusive,
// ordered slot: a task first waits for its predecessor to start, claims
// its own start by checking and advancing runCount, releases its
// successor, and only then runs the fetch, so fetch bodies overlap while
// starts stay in submission order.
func (it *Iterator[T]) run(t *task[T], gate, next chan struct{}) func() {
	return func() {
		<-gate

		var res taskResult[T]
		if started := it.runCount; started != t.seq {
			res.err = fmt.Errorf("%w: task %d started after %d tasks", ErrOutOfOrder, t.seq, started)
			close(next)
		} else {
			it.runCount++
			close(next)
			res.val, res.err = it.safeFetch(t.seq)
		}

		switch {
		case res.err == nil:
			lookaheadTasksTotal.WithLabelValues("ok").Inc()
		case errors.Is(res.err, io.EOF):
			lookaheadTasksTotal.WithLabelValues("eof").Inc()
		case errors.Is(res.err, ErrOutOfOrder):
			lookaheadTasksTotal.WithLabelValues("order_violation").Inc()
		default:
			lookaheadTasksTotal.WithLabelValues("error").Inc()
		}

		t.result <- res
	}
}

// safeFetch runs the fetch, converting a panic into an error so the
// consumer waiting on the task result is never stranded.
func (it *Iterator[T]) safeFetch(seq int) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prefetch task %d panicked: %v", seq, r)
		}
	}()
	return it.fetch(seq)
}

// fail records the terminal state and drops the window. Outstanding tasks
// finish on their workers and deliver into buffered channels nobody
// reads.
func (it *Iterator[T]) fail(err error) {
	it.err = err
	it.pending = nil

	if err != io.EOF {
		it.log.Debug().Err(err).Msg("Lookahead terminated")
	}
}
