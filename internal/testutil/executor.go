// Package testutil provides test doubles for the streaming pipeline:
// an in-memory query executor with scripted responses and a mock
// InfluxDB HTTP server.
package testutil

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
)

// scripted holds one prepared response for an exact query string.
type scripted struct {
	result *influx.ResultSet
	err    error
}

// ScriptedExecutor is an influx.QueryExecutor that serves prepared
// responses from memory. Exact query matches are consumed in FIFO
// order; unmatched queries fall through to the fallback handler.
// It records every query it receives and tracks how many executions
// overlapped, which lets tests assert both query shape and
// concurrency behavior.
type ScriptedExecutor struct {
	mu        sync.Mutex
	responses map[string][]scripted
	fallback  func(query string) (*influx.ResultSet, error)
	queries   []string
	delay     time.Duration
	active    int
	maxActive int
}

// NewScriptedExecutor returns an executor with no scripted responses.
// Unmatched queries fail until a script or fallback is installed.
func NewScriptedExecutor() *ScriptedExecutor {
	return &ScriptedExecutor{responses: make(map[string][]scripted)}
}

// Script queues a result for an exact query string. Multiple calls
// with the same query queue multiple responses, consumed in order.
func (e *ScriptedExecutor) Script(query string, result *influx.ResultSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[query] = append(e.responses[query], scripted{result: result})
}

// ScriptErr queues an error for an exact query string.
func (e *ScriptedExecutor) ScriptErr(query string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[query] = append(e.responses[query], scripted{err: err})
}

// SetFallback installs a handler for queries with no scripted response.
func (e *ScriptedExecutor) SetFallback(fn func(query string) (*influx.ResultSet, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = fn
}

// SetDelay makes every execution sleep before responding, simulating
// query latency so tests can observe overlapping executions.
func (e *ScriptedExecutor) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// Execute implements influx.QueryExecutor.
func (e *ScriptedExecutor) Execute(ctx context.Context, query string) (*influx.ResultSet, error) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	var next *scripted
	if queue := e.responses[query]; len(queue) > 0 {
		next = &queue[0]
		e.responses[query] = queue[1:]
	}
	fallback := e.fallback
	delay := e.delay
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if next != nil {
		return next.result, next.err
	}
	if fallback != nil {
		return fallback(query)
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

// Queries returns a copy of all queries received, in arrival order.
func (e *ScriptedExecutor) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.queries))
	copy(out, e.queries)
	return out
}

// QueryCount returns how many queries have been executed.
func (e *ScriptedExecutor) QueryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queries)
}

// MaxConcurrent returns the highest number of executions that were
// in flight at the same time.
func (e *ScriptedExecutor) MaxConcurrent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

var limitOffsetRe = regexp.MustCompile(`LIMIT (\d+) OFFSET (\d+)`)

// PagedFallback returns a fallback handler that serves slices of the
// given values according to the LIMIT/OFFSET clause found in the
// query text. Queries past the end of the data yield an empty result,
// matching how InfluxDB answers an out-of-range offset.
func PagedFallback(name string, columns []string, values [][]any) func(query string) (*influx.ResultSet, error) {
	return func(query string) (*influx.ResultSet, error) {
		m := limitOffsetRe.FindStringSubmatch(query)
		if m == nil {
			return nil, fmt.Errorf("query has no LIMIT/OFFSET clause: %s", query)
		}
		limit, _ := strconv.Atoi(m[1])
		offset, _ := strconv.Atoi(m[2])
		if offset >= len(values) {
			return &influx.ResultSet{}, nil
		}
		end := offset + limit
		if end > len(values) {
			end = len(values)
		}
		return Result(name, columns, values[offset:end]...), nil
	}
}

// Result builds a single-series result set, the shape InfluxDB
// returns for a plain SELECT.
func Result(name string, columns []string, values ...[]any) *influx.ResultSet {
	return &influx.ResultSet{
		Series: []influx.SeriesResult{{
			Name:    name,
			Columns: columns,
			Values:  values,
		}},
	}
}

// ShowSeriesResult builds the result shape of SHOW SERIES: one series
// with a single "key" column and one row per series key.
func ShowSeriesResult(keys ...string) *influx.ResultSet {
	values := make([][]any, len(keys))
	for i, k := range keys {
		values[i] = []any{k}
	}
	return Result("", []string{"key"}, values...)
}

// EmptyResult builds a result set with no series, the shape InfluxDB
// returns for a query that matched nothing.
func EmptyResult() *influx.ResultSet {
	return &influx.ResultSet{}
}
