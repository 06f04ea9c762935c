// Package lookahead implements bounded concurrent prefetch with strict
// ordered delivery.
//
// An Iterator keeps a window of up to Parallelism fetch tasks running on a
// caller-owned worker pool. Tasks are numbered in submission order, started
// in submission order, and their results are delivered in submission order;
// only the oldest outstanding task is ever awaited. After every delivery
// the window is topped up, so in steady state the next results are already
// being produced while the consumer processes the current one.
//
//	pool, _ := executor.NewPool(8)
//	defer pool.Release()
//
//	it, _ := lookahead.New(pool, fetchPage, lookahead.Options{Parallelism: 4})
//	for {
//		page, err := it.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		// use page
//	}
//
// The Fetch function receives the zero-based sequence number of the element
// to produce and must return io.EOF once the sequence is exhausted. Because
// the window is refilled before the end of the sequence is observed, up to
// Parallelism-1 superfluous fetches past the end may execute; they must be
// cheap and side-effect free (an offset query returning an empty page is).
//
// Iterators are single-consumer: Next must not be called concurrently.
package lookahead
