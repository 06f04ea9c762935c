// Package pagination turns LIMIT/OFFSET query templates into bounded
// page streams.
//
// Query results over large measurements cannot be fetched in one
// response without exhausting memory on either side. This package
// splits such a query into bounded pages and produces them lazily:
// PageFetcher executes exactly one LIMIT/OFFSET query, QueryStreamer
// drives successive offsets until the first empty page.
//
// Example usage:
//
//	fetcher, err := pagination.NewPageFetcher(exec,
//		`SELECT time, value FROM "cpu" LIMIT {limit} OFFSET {offset}`)
//	if err != nil {
//		return err
//	}
//	streamer := pagination.NewQueryStreamer(ctx, fetcher, pagination.DefaultBatchSize)
//	for {
//		page, err := streamer.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		process(page.Rows)
//	}
//
// The streamer:
//   - Issues one query per page, sequentially by default
//   - Terminates on the first page with zero rows
//   - Exposes FetchAt/Pages for order-preserving concurrent prefetch
//     through the lookahead package
//
// Determining that a full page was the last one costs one extra query
// that comes back empty. The offset walk assumes the underlying data
// is stable for the duration of the stream.
package pagination
