package influx

import "context"

// QueryExecutor executes a single query against the backing database and
// returns the decoded result. It is the injection point for the concrete
// database client; the pipeline never talks to a database any other way.
//
// Implementations must be safe for concurrent calls: with prefetch
// parallelism greater than one, several queries are in flight at once.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*ResultSet, error)
}

// ExecutorFunc adapts a function to the QueryExecutor interface.
type ExecutorFunc func(ctx context.Context, query string) (*ResultSet, error)

// Execute implements QueryExecutor.
func (f ExecutorFunc) Execute(ctx context.Context, query string) (*ResultSet, error) {
	return f(ctx, query)
}
