// Package influxhttp executes queries against the InfluxDB v1 HTTP
// API with retry, compression, and error classification.
package influxhttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Prometheus metrics for query requests.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "influxstream_http_requests_total",
		Help: "Total query requests by status",
	}, []string{"status"})

	httpRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "influxstream_http_request_duration_seconds",
		Help:    "Query request duration in seconds, retries included",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "influxstream_http_errors_total",
		Help: "Total query request errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of query failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses and semantic query
	// errors. Not retried.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses. Retried.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport and decode failures.
	// Retried.
	ErrorClassNetwork ErrorClass = "network"
)

// Config holds the executor configuration.
type Config struct {
	// BaseURL of the server, e.g. "http://localhost:8086".
	BaseURL string

	// Database targeted by every query.
	Database string

	// Username and Password for servers with authentication enabled.
	// Empty disables authentication.
	Username string
	Password string

	// Epoch requests integer timestamps in this precision. Empty
	// keeps RFC3339 strings.
	Epoch influx.Epoch

	// Timeout per HTTP request.
	Timeout time.Duration

	// AcceptGzip asks the server for compressed responses.
	AcceptGzip bool

	// Retry behavior for server and network failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, database string) Config {
	return Config{
		BaseURL:    baseURL,
		Database:   database,
		Epoch:      influx.EpochSecond,
		Timeout:    30 * time.Second,
		AcceptGzip: true,
		Retry:      DefaultRetryConfig(),
	}
}

// Executor is an influx.QueryExecutor backed by the v1 /query API.
type Executor struct {
	httpClient *http.Client
	queryURL   string
	pingURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a new HTTP query executor.
func New(cfg Config) (*Executor, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https: %s", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	root := strings.TrimRight(cfg.BaseURL, "/")

	return &Executor{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// Compression is negotiated and decoded by hand, see
			// decodeBody.
			Transport: &http.Transport{DisableCompression: true},
		},
		queryURL: root + "/query",
		pingURL:  root + "/ping",
		config:   cfg,
		logger:   logging.NewLogger("influxhttp"),
	}, nil
}

// queryResponse is the wire envelope of the /query endpoint.
type queryResponse struct {
	Results []influx.ResultSet `json:"results"`
	Err     string             `json:"error"`
}

// Execute runs one query and decodes the first statement result.
// Server and network failures are retried with backoff; whatever
// remains is wrapped in an influx.QueryError.
func (e *Executor) Execute(ctx context.Context, query string) (*influx.ResultSet, error) {
	start := time.Now()
	defer func() {
		httpRequestDuration.Observe(time.Since(start).Seconds())
	}()

	e.logger.Debug().
		Str("query", query).
		Msg("Executing query")

	var result *influx.ResultSet
	err := e.retryWithBackoff(ctx, func() error {
		rs, err := e.once(ctx, query)
		if err != nil {
			return err
		}
		result = rs
		return nil
	})
	if err != nil {
		return nil, &influx.QueryError{Query: query, Err: err}
	}
	return result, nil
}

// once performs a single request attempt.
func (e *Executor) once(ctx context.Context, query string) (*influx.ResultSet, error) {
	req, err := e.newRequest(ctx, query)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		httpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		httpRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		httpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, err
	}

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		httpErrorsTotal.WithLabelValues(string(class)).Inc()
		httpRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		e.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Query request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    serverMessage(body, resp.Status),
		}
	}

	var envelope queryResponse
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		httpErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}
	httpRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if envelope.Err != "" {
		httpErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassClient, Message: envelope.Err}
	}
	if len(envelope.Results) == 0 {
		return &influx.ResultSet{}, nil
	}
	result := envelope.Results[0]
	if result.Err != "" {
		httpErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassClient, Message: result.Err}
	}
	return &result, nil
}

// newRequest builds the /query request. SELECT and SHOW go over GET,
// everything else (DROP and friends) over POST, matching the v1 API
// rules.
func (e *Executor) newRequest(ctx context.Context, query string) (*http.Request, error) {
	params := url.Values{}
	params.Set("q", query)
	if e.config.Database != "" {
		params.Set("db", e.config.Database)
	}
	if e.config.Epoch != "" {
		params.Set("epoch", string(e.config.Epoch))
	}
	if e.config.Username != "" {
		params.Set("u", e.config.Username)
		params.Set("p", e.config.Password)
	}

	method := http.MethodGet
	if !isReadQuery(query) {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, e.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.config.AcceptGzip {
		req.Header.Set("Accept-Encoding", "gzip")
	}
	return req, nil
}

// decodeBody returns the response body reader, transparently
// decompressing gzip content.
func decodeBody(resp *http.Response) (io.Reader, error) {
	if !strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp.Body, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	return gz, nil
}

// isReadQuery reports whether the statement can be sent over GET.
func isReadQuery(query string) bool {
	query = strings.TrimSpace(query)
	for _, kw := range []string{"SELECT", "SHOW"} {
		if len(query) >= len(kw) && strings.EqualFold(query[:len(kw)], kw) {
			return true
		}
	}
	return false
}

// classifyStatus categorizes an HTTP status for retry and metrics.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// serverMessage extracts the error field of a failure body, falling
// back to the HTTP status line.
func serverMessage(body io.Reader, fallback string) string {
	var payload struct {
		Err string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Err != "" {
		return payload.Err
	}
	return fallback
}

// Ping checks server reachability over the /ping endpoint.
func (e *Executor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.pingURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (e *Executor) SetHTTPClient(client *http.Client) {
	e.httpClient = client
}
