package lookahead

import "sync"

// Source yields elements one at a time; io.EOF marks the end of the
// sequence.
type Source[T any] interface {
	Next() (T, error)
}

// FromSource adapts a sequential source to a Fetch. Pulls are forced into
// exact sequence order with a turnstile, so a source that is not safe for
// concurrent use stays correct under a concurrent window. The pulls
// themselves cannot overlap; sources that can compute an element from its
// sequence number directly should provide an indexed Fetch instead.
func FromSource[T any](src Source[T]) Fetch[T] {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	turn := 0

	return func(seq int) (T, error) {
		mu.Lock()
		for turn != seq {
			cond.Wait()
		}
		v, err := src.Next()
		turn++
		cond.Broadcast()
		mu.Unlock()
		return v, err
	}
}
