// Package influx defines the domain model shared by the streaming pipeline:
// rows, pages, series, decoded query results, the query-execution boundary,
// and the iteration protocol used by every stream in this module.
//
// # Iteration protocol
//
// Streams are single-pass. RowSource and PageSource yield elements with
// Next until the sequence ends, signalled by io.EOF:
//
//	for {
//		row, err := src.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		// use row
//	}
//
// Sources are not safe for concurrent use unless documented otherwise.
//
// # Query boundary
//
// QueryExecutor is the only contact point with an actual database. The
// pipeline issues query text and consumes decoded ResultSets; transport,
// authentication and retry policy live behind the interface (see
// pkg/influxhttp for the HTTP implementation and pkg/sqlexec for the
// database/sql adapter). Executors must be safe for concurrent calls when
// used with prefetch parallelism.
package influx
