package pagination

import (
	"context"
	"io"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/lookahead"
)

// QueryStreamer walks a PageFetcher across successive offsets. The
// first empty page ends the stream; whether a full page was the last
// one is only discovered by the following query coming back empty, so
// a stream of N full pages costs N+1 queries.
//
// Next consumes pages sequentially. FetchAt serves any page index
// independent of the cursor and is safe for concurrent calls, which
// is what the lookahead iterator needs for prefetching. A streamer is
// not restartable.
type QueryStreamer struct {
	ctx       context.Context
	fetcher   *PageFetcher
	batchSize int
	next      int
	err       error
}

// NewQueryStreamer creates a streamer over the fetcher. A batch size
// of zero or less falls back to DefaultBatchSize. The context bounds
// every query the streamer issues, the same way a context passed to
// database/sql covers all row fetches of the result.
func NewQueryStreamer(ctx context.Context, fetcher *PageFetcher, batchSize int) *QueryStreamer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &QueryStreamer{
		ctx:       ctx,
		fetcher:   fetcher,
		batchSize: batchSize,
	}
}

// BatchSize returns the page size the streamer queries with.
func (s *QueryStreamer) BatchSize() int {
	return s.batchSize
}

// FetchAt returns the page at index seq, i.e. offset seq*batchSize.
// An empty page reports io.EOF. FetchAt reads no cursor state, so the
// same seq always issues the same query.
func (s *QueryStreamer) FetchAt(seq int) (influx.Page, error) {
	page, err := s.fetcher.FetchPage(s.ctx, seq*s.batchSize, s.batchSize)
	if err != nil {
		return influx.Page{}, err
	}
	if page.Empty() {
		return influx.Page{}, io.EOF
	}
	return page, nil
}

// Pages adapts the streamer to an indexed fetch for the lookahead
// iterator.
func (s *QueryStreamer) Pages() lookahead.Fetch[influx.Page] {
	return s.FetchAt
}

// Next returns the next non-empty page. After the first empty page it
// returns io.EOF without issuing further queries; after any other
// error it keeps returning that same error.
func (s *QueryStreamer) Next() (influx.Page, error) {
	if s.err != nil {
		return influx.Page{}, s.err
	}
	page, err := s.FetchAt(s.next)
	if err != nil {
		s.err = err
		return influx.Page{}, err
	}
	s.next++
	return page, nil
}
