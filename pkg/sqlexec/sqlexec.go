// Package sqlexec adapts a database/sql handle to the query executor
// boundary, so the pagination pipeline can stream from relational
// databases with the same LIMIT/OFFSET templates it uses for InfluxDB.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/logging"
)

// Config holds the executor configuration.
type Config struct {
	// SlowQueryThreshold triggers a warning log for queries slower
	// than this. Zero disables the check.
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		SlowQueryThreshold: 5 * time.Second,
	}
}

// Executor runs queries on a database/sql handle and shapes the rows
// like a single-series query result.
type Executor struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger
}

// New creates an executor over an open database handle. The caller
// keeps ownership of the handle and closes it after the last stream.
func New(db *sql.DB, cfg Config) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must not be nil")
	}
	return &Executor{
		db:     db,
		config: cfg,
		logger: logging.NewLogger("sqlexec"),
	}, nil
}

// Execute implements influx.QueryExecutor. All rows of the query are
// collected into one series block; byte slices are converted to
// strings so row values compare and encode like their InfluxDB
// counterparts. A query that matches nothing yields an empty result
// set, not an error.
func (e *Executor) Execute(ctx context.Context, query string) (*influx.ResultSet, error) {
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &influx.QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &influx.QueryError{Query: query, Err: err}
	}

	var values [][]any
	for rows.Next() {
		tuple := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range tuple {
			ptrs[i] = &tuple[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &influx.QueryError{Query: query, Err: err}
		}
		for i, v := range tuple {
			if b, ok := v.([]byte); ok {
				tuple[i] = string(b)
			}
		}
		values = append(values, tuple)
	}
	if err := rows.Err(); err != nil {
		return nil, &influx.QueryError{Query: query, Err: err}
	}

	duration := time.Since(start)
	if e.config.SlowQueryThreshold > 0 && duration > e.config.SlowQueryThreshold {
		e.logger.Warn().
			Str("query", query).
			Dur("duration", duration).
			Msg("Slow SQL query")
	}
	e.logger.Debug().
		Int("rows", len(values)).
		Dur("duration", duration).
		Msg("Executed SQL query")

	if len(values) == 0 {
		return &influx.ResultSet{}, nil
	}
	return &influx.ResultSet{
		Series: []influx.SeriesResult{{Columns: columns, Values: values}},
	}, nil
}
