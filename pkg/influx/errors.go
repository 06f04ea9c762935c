package influx

import "fmt"

// QueryError wraps a failure raised while executing a query. The pipeline
// never converts or swallows executor failures; they travel up wrapped in
// a QueryError carrying the query text that caused them.
type QueryError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (query: %s)", e.Err, e.Query)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *QueryError) Unwrap() error {
	return e.Err
}
