package influxhttp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/influx-stream-client/internal/testutil"
	"github.com/Sternrassler/influx-stream-client/pkg/influx"
)

// fastRetry keeps test retries in the millisecond range.
func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newTestExecutor(t *testing.T) (*Executor, *testutil.MockInflux) {
	t.Helper()

	mock := testutil.NewMockInflux()
	t.Cleanup(mock.Close)

	cfg := DefaultConfig(mock.URL(), "testdb")
	cfg.Retry = fastRetry(3)

	exec, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return exec, mock
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid http", DefaultConfig("http://localhost:8086", "db"), false},
		{"valid https", DefaultConfig("https://influx.example.com", "db"), false},
		{"empty base URL", DefaultConfig("", "db"), true},
		{"unsupported scheme", DefaultConfig("ftp://localhost", "db"), true},
		{"unparseable URL", DefaultConfig("://nope", "db"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExecuteDecodesResult(t *testing.T) {
	exec, mock := newTestExecutor(t)

	query := `SELECT time, value FROM "cpu" LIMIT 2 OFFSET 0`
	mock.SetResult(query, testutil.Result("cpu",
		[]string{"time", "value"},
		[]any{float64(100), 0.5},
		[]any{float64(110), 0.7},
	))

	rs, err := exec.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	rows := rs.Rows()
	if len(rows) != 2 {
		t.Fatalf("decoded %d rows, want 2", len(rows))
	}
	if rows[0]["value"] != 0.5 || rows[1]["value"] != 0.7 {
		t.Errorf("row values = %v, %v", rows[0]["value"], rows[1]["value"])
	}

	params := mock.GetLastQuery()
	if params.Get("db") != "testdb" {
		t.Errorf("db param = %q, want testdb", params.Get("db"))
	}
	if params.Get("q") != query {
		t.Errorf("q param = %q", params.Get("q"))
	}
	if params.Get("epoch") != "s" {
		t.Errorf("epoch param = %q, want s", params.Get("epoch"))
	}
}

func TestExecuteEmptyResult(t *testing.T) {
	exec, _ := newTestExecutor(t)

	// The default handler answers with one empty statement result.
	rs, err := exec.Execute(context.Background(), `SELECT v FROM "nothing"`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rs.Empty() {
		t.Errorf("result not empty: %+v", rs)
	}
}

func TestExecuteStatementError(t *testing.T) {
	exec, mock := newTestExecutor(t)

	query := `DROP MEASUREMENT "ghost"`
	mock.SetResponse(query, testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.StatementErrorBody("measurement not found: ghost"),
	})

	_, err := exec.Execute(context.Background(), query)
	if err == nil {
		t.Fatal("Execute() succeeded on statement error")
	}

	var queryErr *influx.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("error %v is not a QueryError", err)
	}
	var apiErr *APIError
	if !errors.As(queryErr.Err, &apiErr) {
		t.Fatalf("QueryError wraps %v, want APIError", queryErr.Err)
	}
	if apiErr.ErrorClass != ErrorClassClient {
		t.Errorf("error class = %s, want client", apiErr.ErrorClass)
	}
	if apiErr.Message != "measurement not found: ghost" {
		t.Errorf("message = %q", apiErr.Message)
	}

	// Semantic errors are not retried.
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("made %d requests, want 1", n)
	}
}

func TestExecuteClientErrorNoRetry(t *testing.T) {
	exec, mock := newTestExecutor(t)

	query := `SELECT bogus`
	mock.SetResponse(query, testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       testutil.ErrorBody("error parsing query"),
	})

	_, err := exec.Execute(context.Background(), query)
	if err == nil {
		t.Fatal("Execute() succeeded on 400")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v does not wrap APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "error parsing query" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("made %d requests, want 1", n)
	}
}

func TestExecuteServerErrorRetriesUntilExhausted(t *testing.T) {
	exec, mock := newTestExecutor(t)

	query := `SELECT v FROM "cpu"`
	mock.SetResponse(query, testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       testutil.ErrorBody("engine: unavailable"),
	})

	_, err := exec.Execute(context.Background(), query)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Execute() error = %v, want ErrRetryExhausted", err)
	}

	var queryErr *influx.QueryError
	if !errors.As(err, &queryErr) {
		t.Errorf("error %v is not a QueryError", err)
	}
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("made %d requests, want 3", n)
	}
}

func TestExecuteRecoversAfterServerError(t *testing.T) {
	exec, mock := newTestExecutor(t)

	query := `SELECT v FROM "cpu"`
	var mu sync.Mutex
	calls := 0
	mock.SetHandler(query, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(testutil.ErrorBody("engine: unavailable")))
			return
		}
		w.Write([]byte(testutil.ResultBody(testutil.Result("cpu", []string{"v"}, []any{1.0}))))
	})

	rs, err := exec.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rs.Rows()) != 1 {
		t.Errorf("decoded %d rows, want 1", len(rs.Rows()))
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("made %d requests, want 2", n)
	}
}

func TestExecuteGzipResponse(t *testing.T) {
	exec, mock := newTestExecutor(t)

	query := `SELECT v FROM "cpu"`
	mock.SetResponse(query, testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.ResultBody(testutil.Result("cpu", []string{"v"}, []any{1.5})),
		Gzip:       true,
	})

	rs, err := exec.Execute(context.Background(), query)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rs.Rows()) != 1 || rs.Rows()[0]["v"] != 1.5 {
		t.Errorf("decoded rows = %v", rs.Rows())
	}
	if mock.GetGzipRequestCount() == 0 {
		t.Error("request did not offer gzip in Accept-Encoding")
	}
}

func TestExecuteWithoutGzipNegotiation(t *testing.T) {
	mock := testutil.NewMockInflux()
	t.Cleanup(mock.Close)

	cfg := DefaultConfig(mock.URL(), "testdb")
	cfg.AcceptGzip = false
	cfg.Retry = fastRetry(1)

	exec, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := exec.Execute(context.Background(), `SELECT v FROM "cpu"`); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if mock.GetGzipRequestCount() != 0 {
		t.Error("request offered gzip despite AcceptGzip=false")
	}
}

func TestExecuteNetworkError(t *testing.T) {
	cfg := DefaultConfig("http://localhost:1", "testdb")
	cfg.Retry = fastRetry(2)
	cfg.Timeout = time.Second

	exec, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = exec.Execute(context.Background(), `SELECT v FROM "cpu"`)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Execute() error = %v, want ErrRetryExhausted", err)
	}
	var queryErr *influx.QueryError
	if !errors.As(err, &queryErr) {
		t.Errorf("error %v is not a QueryError", err)
	}
}

func TestQueryMethodSelection(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMethod string
	}{
		{"select over GET", `SELECT v FROM "cpu"`, http.MethodGet},
		{"show over GET", `SHOW SERIES FROM "cpu"`, http.MethodGet},
		{"lowercase select over GET", `select v from "cpu"`, http.MethodGet},
		{"drop over POST", `DROP MEASUREMENT "cpu"`, http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, mock := newTestExecutor(t)

			var mu sync.Mutex
			var gotMethod string
			mock.SetHandler(tt.query, func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				gotMethod = r.Method
				mu.Unlock()
				w.Write([]byte(`{"results":[{}]}`))
			})

			if _, err := exec.Execute(context.Background(), tt.query); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if gotMethod != tt.wantMethod {
				t.Errorf("method = %s, want %s", gotMethod, tt.wantMethod)
			}
		})
	}
}

func TestPing(t *testing.T) {
	exec, _ := newTestExecutor(t)

	if err := exec.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	cfg := DefaultConfig("http://localhost:1", "testdb")
	cfg.Timeout = time.Second

	exec, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := exec.Ping(context.Background()); err == nil {
		t.Error("Ping() against closed port succeeded")
	}
}
