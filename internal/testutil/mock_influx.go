package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	jsoniter "github.com/json-iterator/go"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MockResponse defines the behavior of a mock query endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
	Gzip       bool
}

// MockInflux is a configurable mock InfluxDB server. Handlers are
// keyed by the q parameter of the /query request, so each query
// string gets its own scripted response.
type MockInflux struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount     int
	GzipRequestCount int
	LastQuery        url.Values
}

// NewMockInflux creates a new mock InfluxDB server.
func NewMockInflux() *MockInflux {
	mock := &MockInflux{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("q")

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			mock.GzipRequestCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[query]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockInflux) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockInflux) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockInflux) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.GzipRequestCount = 0
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific query string.
func (m *MockInflux) SetHandler(query string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[query] = handler
}

// SetResponse configures a simple response for a query string.
func (m *MockInflux) SetResponse(query string, resp MockResponse) {
	m.SetHandler(query, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}

		if resp.Gzip {
			w.Header().Set("Content-Encoding", "gzip")
			w.WriteHeader(resp.StatusCode)
			gz := gzip.NewWriter(w)
			gz.Write([]byte(resp.Body))
			gz.Close()
			return
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetResult configures a 200 response carrying the given result set.
func (m *MockInflux) SetResult(query string, rs *influx.ResultSet) {
	m.SetResponse(query, MockResponse{
		StatusCode: http.StatusOK,
		Body:       ResultBody(rs),
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockInflux) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetGzipRequestCount returns the number of requests that offered
// gzip in Accept-Encoding.
func (m *MockInflux) GetGzipRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.GzipRequestCount
}

// GetLastQuery returns the query parameters of the most recent request.
func (m *MockInflux) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// defaultHandler answers like InfluxDB answers a query that matched
// nothing: 200 OK with one empty statement result.
func (m *MockInflux) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Influxdb-Version", "1.8.10")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"results":[{}]}`))
}

// ResultBody encodes result sets as an InfluxDB query response body.
func ResultBody(results ...*influx.ResultSet) string {
	envelope := struct {
		Results []influx.ResultSet `json:"results"`
	}{}
	for _, rs := range results {
		envelope.Results = append(envelope.Results, *rs)
	}
	body, _ := json.Marshal(envelope)
	return string(body)
}

// ErrorBody encodes a top-level InfluxDB error response body.
func ErrorBody(msg string) string {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return string(body)
}

// StatementErrorBody encodes a per-statement error, the shape InfluxDB
// uses for failures of an otherwise accepted request.
func StatementErrorBody(msg string) string {
	return ResultBody(&influx.ResultSet{Err: msg})
}
