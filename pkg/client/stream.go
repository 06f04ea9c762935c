package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/lookahead"
	"github.com/Sternrassler/influx-stream-client/pkg/pagination"
)

// StreamOptions configures a streamed query.
type StreamOptions struct {
	// Fields are the projected columns for StreamMeasurement's
	// per-series queries. Empty means all fields (*). StreamQuery and
	// StreamParams take their query shape from the template and params
	// instead.
	Fields []string

	// Filter is the caller's WHERE expression for StreamMeasurement. It
	// is combined with each series selector.
	Filter string

	// GroupOrderBy is appended as the GROUP BY clause of
	// StreamMeasurement's per-series queries when set.
	GroupOrderBy string

	// BatchSize is the page size for offset pagination. Defaults to
	// pagination.DefaultBatchSize.
	BatchSize int

	// Parallelism is the number of pages prefetched ahead of the
	// consumer when the client has a pool. Zero means
	// lookahead.DefaultParallelism; a negative value forces on-demand
	// fetching.
	Parallelism int

	// WarmStart begins prefetching at stream construction instead of
	// on the first read.
	WarmStart bool

	// Batched preserves page boundaries in the stream instead of
	// flattening to rows.
	Batched bool

	// TimeFormat decorates the timestamp column of every produced row.
	// The zero value leaves rows untouched.
	TimeFormat influx.TimeFormat
}

// QueryParams describes a SELECT built for streaming.
type QueryParams struct {
	// Measurement is the FROM target. Required.
	Measurement string

	// Fields are the projected columns. Empty means all fields (*).
	Fields []string

	// Filter is the WHERE expression. Empty means unrestricted.
	Filter string

	// GroupOrderBy is appended as the GROUP BY clause when set.
	GroupOrderBy string
}

// SeriesStream pairs one discovered series with its restricted stream.
type SeriesStream struct {
	// Series is the discovered series.
	Series influx.Series

	// Selector is the WHERE expression restricting the stream to the
	// series, the caller's filter included.
	Selector string

	// Stream yields the rows of exactly this series.
	Stream *Stream
}

// Stream is a single-pass handle over the result of one streamed query.
// Depending on StreamOptions.Batched it either preserves page boundaries
// or flattens them away; both views draw from the same underlying pass.
type Stream struct {
	batched bool
	pages   influx.PageSource
	rows    influx.RowSource
}

// Batched reports whether the stream preserves page boundaries.
func (s *Stream) Batched() bool {
	return s.batched
}

// Pages returns the page-level view of the stream. In flattened mode
// there is none and Pages returns nil.
func (s *Stream) Pages() influx.PageSource {
	if !s.batched {
		return nil
	}
	return s.pages
}

// Rows returns the row-level view of the stream. In batched mode it
// drains the same pass as Pages.
func (s *Stream) Rows() influx.RowSource {
	return s.rows
}

// StreamQuery drives a query template across offsets and returns the
// resulting stream. The template must contain the {limit} and {offset}
// placeholders.
func (c *StreamingClient) StreamQuery(ctx context.Context, format string, opts StreamOptions) (*Stream, error) {
	fetcher, err := pagination.NewPageFetcher(c.exec, format)
	if err != nil {
		return nil, err
	}
	streamer := pagination.NewQueryStreamer(ctx, fetcher, opts.BatchSize)

	pages, err := c.pageSource(streamer, opts)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("query", truncateQuery(format)).
		Int("batch_size", streamer.BatchSize()).
		Bool("batched", opts.Batched).
		Msg("Stream opened")

	return newStream(pages, opts), nil
}

// StreamParams builds the paginated SELECT for params and streams it.
func (c *StreamingClient) StreamParams(ctx context.Context, params QueryParams, opts StreamOptions) (*Stream, error) {
	if params.Measurement == "" {
		return nil, fmt.Errorf("measurement is required")
	}
	return c.StreamQuery(ctx, buildSelect(params), opts)
}

// StreamMeasurement discovers the series of a measurement and opens one
// stream per series, each restricted to exactly that series. Streams
// come back in discovery order; consuming them in order yields every
// row of the measurement grouped by series.
func (c *StreamingClient) StreamMeasurement(ctx context.Context, measurement string, opts StreamOptions) ([]SeriesStream, error) {
	series, err := c.ListSeries(ctx, measurement)
	if err != nil {
		return nil, err
	}

	streams := make([]SeriesStream, 0, len(series))
	for _, s := range series {
		selector := influx.JoinSelectors(opts.Filter, s.Selector())
		stream, err := c.StreamParams(ctx, QueryParams{
			Measurement:  measurement,
			Fields:       opts.Fields,
			Filter:       selector,
			GroupOrderBy: opts.GroupOrderBy,
		}, opts)
		if err != nil {
			return nil, err
		}
		streams = append(streams, SeriesStream{Series: s, Selector: selector, Stream: stream})
	}
	return streams, nil
}

// pageSource wires the streamer through the prefetch pool when one is
// configured.
func (c *StreamingClient) pageSource(streamer *pagination.QueryStreamer, opts StreamOptions) (influx.PageSource, error) {
	par := opts.Parallelism
	if par == 0 {
		par = lookahead.DefaultParallelism
	}
	if c.pool == nil || par < 0 {
		return streamer, nil
	}
	return lookahead.New(c.pool, streamer.Pages(), lookahead.Options{
		Parallelism: par,
		WarmStart:   opts.WarmStart,
	})
}

// newStream assembles the stream views over the decorated page source.
func newStream(pages influx.PageSource, opts StreamOptions) *Stream {
	decorated := decoratePages(pages, opts.TimeFormat)
	s := &Stream{batched: opts.Batched}
	if opts.Batched {
		s.pages = decorated
	}
	s.rows = influx.FlattenPages(decorated)
	return s
}

// buildSelect renders the paginated SELECT template for params.
func buildSelect(params QueryParams) string {
	fields := "*"
	if len(params.Fields) > 0 {
		fields = strings.Join(params.Fields, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %q", fields, params.Measurement)
	if params.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(params.Filter)
	}
	if params.GroupOrderBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(params.GroupOrderBy)
	}
	b.WriteString(" LIMIT ")
	b.WriteString(pagination.LimitPlaceholder)
	b.WriteString(" OFFSET ")
	b.WriteString(pagination.OffsetPlaceholder)
	return b.String()
}

// decoratePages applies the time format to every row of every page.
func decoratePages(pages influx.PageSource, format influx.TimeFormat) influx.PageSource {
	if !format.Enabled() {
		return pages
	}
	return &pageDecorator{pages: pages, format: format}
}

type pageDecorator struct {
	pages  influx.PageSource
	format influx.TimeFormat
}

func (d *pageDecorator) Next() (influx.Page, error) {
	page, err := d.pages.Next()
	if err != nil {
		return influx.Page{}, err
	}
	for _, row := range page.Rows {
		d.format.Apply(row)
	}
	return page, nil
}
