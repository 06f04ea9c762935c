package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/logging"
)

const (
	// DefaultBatchSize is the page size used when none is configured.
	// Large enough to keep the query count low on big measurements,
	// small enough that a page of decoded rows stays comfortable in
	// memory.
	DefaultBatchSize = 50000

	// LimitPlaceholder and OffsetPlaceholder are the template markers
	// replaced with the bounds of each page query.
	LimitPlaceholder  = "{limit}"
	OffsetPlaceholder = "{offset}"
)

// PageFetcher executes one bounded query per call from a query
// template. The template must contain the {limit} and {offset}
// placeholders:
//
//	SELECT time, value FROM "cpu" LIMIT {limit} OFFSET {offset}
//
// The fetcher keeps no cursor state and is safe for concurrent use.
type PageFetcher struct {
	exec   influx.QueryExecutor
	format string
	log    zerolog.Logger
}

// NewPageFetcher creates a fetcher for the given query template.
func NewPageFetcher(exec influx.QueryExecutor, format string) (*PageFetcher, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor must not be nil")
	}
	if !strings.Contains(format, LimitPlaceholder) || !strings.Contains(format, OffsetPlaceholder) {
		return nil, fmt.Errorf("query template must contain %s and %s placeholders: %s",
			LimitPlaceholder, OffsetPlaceholder, format)
	}
	return &PageFetcher{
		exec:   exec,
		format: format,
		log:    logging.NewLogger("pagination"),
	}, nil
}

// FetchPage executes the bounded query at the given offset. A query
// that matches nothing yields a valid empty page, not an error.
// Executor errors are returned unmodified.
func (f *PageFetcher) FetchPage(ctx context.Context, offset, limit int) (influx.Page, error) {
	if offset < 0 || limit <= 0 {
		return influx.Page{}, fmt.Errorf("invalid page bounds: offset %d, limit %d", offset, limit)
	}

	query := strings.NewReplacer(
		LimitPlaceholder, strconv.Itoa(limit),
		OffsetPlaceholder, strconv.Itoa(offset),
	).Replace(f.format)

	start := time.Now()
	result, err := f.exec.Execute(ctx, query)
	duration := time.Since(start)
	pageFetchDuration.Observe(duration.Seconds())

	if err != nil {
		pagesFetchedTotal.WithLabelValues("error").Inc()
		f.log.Warn().
			Err(err).
			Int("offset", offset).
			Int("limit", limit).
			Msg("Page fetch failed")
		return influx.Page{}, err
	}

	page := influx.Page{Offset: offset, Limit: limit, Rows: result.Rows()}
	pageRows.Observe(float64(page.Len()))
	if page.Empty() {
		pagesFetchedTotal.WithLabelValues("empty").Inc()
	} else {
		pagesFetchedTotal.WithLabelValues("ok").Inc()
	}

	f.log.Debug().
		Int("offset", offset).
		Int("rows", page.Len()).
		Dur("duration", duration).
		Msg("Fetched page")

	return page, nil
}
