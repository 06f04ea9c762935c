// Package client provides the high-level streaming client: series
// discovery, paginated query streams with concurrent prefetch, and
// series list caching.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/influx-stream-client/pkg/cache"
	"github.com/Sternrassler/influx-stream-client/pkg/executor"
	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/logging"
)

// StreamingClient is the main entry point for streaming reads.
type StreamingClient struct {
	exec   influx.QueryExecutor
	pool   executor.Executor
	cache  *cache.Manager
	config Config
	logger zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Executor runs the queries. Required.
	Executor influx.QueryExecutor

	// Pool schedules concurrent prefetch tasks. Nil disables prefetch;
	// streams then fetch pages on demand.
	Pool executor.Executor

	// Redis client for series list caching. Nil disables caching.
	Redis *redis.Client

	// SeriesCacheTTL bounds how long cached series lists are reused.
	SeriesCacheTTL time.Duration

	// Database is the database the executor operates on. Used to scope
	// cache keys.
	Database string

	// SlowQueryThreshold triggers a warning for queries that run
	// longer. Zero disables the warning.
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(exec influx.QueryExecutor, database string) Config {
	return Config{
		Executor:           exec,
		Database:           database,
		SeriesCacheTTL:     1 * time.Hour,
		SlowQueryThreshold: 5 * time.Second,
	}
}

// New creates a new streaming client.
func New(cfg Config) (*StreamingClient, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("query executor is required")
	}

	if cfg.SeriesCacheTTL < 0 {
		return nil, fmt.Errorf("series cache TTL must not be negative (got %v)", cfg.SeriesCacheTTL)
	}

	logger := logging.NewLogger("stream-client")

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &StreamingClient{
		exec:   cfg.Executor,
		pool:   cfg.Pool,
		cache:  cacheManager,
		config: cfg,
		logger: logger,
	}, nil
}

// Query runs a single statement and returns the decoded result. Queries
// over the configured slow-query threshold are logged as warnings.
func (c *StreamingClient) Query(ctx context.Context, query string) (*influx.ResultSet, error) {
	start := time.Now()
	result, err := c.exec.Execute(ctx, query)
	duration := time.Since(start)

	if c.config.SlowQueryThreshold > 0 && duration > c.config.SlowQueryThreshold {
		c.logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Dur("threshold", c.config.SlowQueryThreshold).
			Msg("Slow query")
	} else {
		c.logger.Debug().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("Executed query")
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryRows runs a single statement and returns its rows with the time
// format applied.
func (c *StreamingClient) QueryRows(ctx context.Context, query string, format influx.TimeFormat) ([]influx.Row, error) {
	result, err := c.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	rows := result.Rows()
	for _, row := range rows {
		format.Apply(row)
	}
	return rows, nil
}

// ListSeries discovers the distinct series of a measurement via SHOW
// SERIES. Results are cached when the client has a Redis cache. A
// measurement without series yields an empty slice, not an error.
func (c *StreamingClient) ListSeries(ctx context.Context, measurement string) ([]influx.Series, error) {
	key := cache.Key{Database: c.config.Database, Measurement: measurement}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			c.logger.Debug().
				Str("measurement", measurement).
				Bool("cache_hit", true).
				Int("series", len(entry.Series)).
				Msg("Series list served from cache")
			return entry.Series, nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().
				Err(err).
				Str("measurement", measurement).
				Msg("Series cache read failed")
		}
	}

	result, err := c.Query(ctx, fmt.Sprintf("SHOW SERIES FROM %q", measurement))
	if err != nil {
		return nil, err
	}

	series := parseShowSeries(result)
	c.logger.Info().
		Str("measurement", measurement).
		Int("series", len(series)).
		Msg("Discovered series")

	if c.cache != nil && c.config.SeriesCacheTTL > 0 {
		if err := c.cache.Set(ctx, key, cache.NewEntry(series), c.config.SeriesCacheTTL); err != nil {
			c.logger.Warn().
				Err(err).
				Str("measurement", measurement).
				Msg("Series cache write failed")
		}
	}

	return series, nil
}

// DropMeasurement removes a measurement and invalidates its cached
// series list. It reports whether the measurement existed; dropping an
// unknown measurement is not an error.
func (c *StreamingClient) DropMeasurement(ctx context.Context, measurement string) (bool, error) {
	_, err := c.Query(ctx, fmt.Sprintf("DROP MEASUREMENT %q", measurement))

	existed := true
	switch {
	case err == nil:
	case isMeasurementNotFound(err):
		existed = false
	default:
		return false, err
	}

	if c.cache != nil {
		key := cache.Key{Database: c.config.Database, Measurement: measurement}
		if err := c.cache.Invalidate(ctx, key); err != nil {
			c.logger.Warn().
				Err(err).
				Str("measurement", measurement).
				Msg("Series cache invalidation failed")
		}
	}

	return existed, nil
}

// GetCache returns the cache manager (for testing). Nil when the client
// runs without caching.
func (c *StreamingClient) GetCache() *cache.Manager {
	return c.cache
}

// parseShowSeries extracts the series keys from a SHOW SERIES result.
func parseShowSeries(rs *influx.ResultSet) []influx.Series {
	series := []influx.Series{}
	if rs == nil {
		return series
	}
	for _, sr := range rs.Series {
		keyIdx := -1
		for i, col := range sr.Columns {
			if col == "key" {
				keyIdx = i
				break
			}
		}
		if keyIdx < 0 {
			continue
		}
		for _, tuple := range sr.Values {
			if keyIdx >= len(tuple) {
				continue
			}
			if key, ok := tuple[keyIdx].(string); ok {
				series = append(series, influx.ParseSeriesKey(key))
			}
		}
	}
	return series
}

// isMeasurementNotFound matches the server's report of a DROP statement
// naming an unknown measurement.
func isMeasurementNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "measurement not found")
}

// truncateQuery bounds statement text for log fields.
func truncateQuery(q string) string {
	const max = 200
	if len(q) <= max {
		return q
	}
	return q[:max] + "..."
}
