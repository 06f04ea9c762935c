// Package cache caches series discovery results in Redis.
//
// SHOW SERIES on a large measurement is an expensive scatter query,
// and partition discovery runs it up front for every streamed
// measurement. The manager keeps discovered series lists in Redis
// under deterministic keys so repeated streams of the same
// measurement skip the discovery query entirely.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Database: "telemetry", Measurement: "cpu"}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Run SHOW SERIES against the server, then:
//		// manager.Set(ctx, key, cache.NewEntry(series), ttl)
//	}
//
// Dropping a measurement calls Invalidate so the next stream
// rediscovers from the server instead of trusting a stale list.
//
// # Metrics
//
// The manager exports Prometheus metrics:
//
//   - influxstream_series_cache_hits_total - Cache hits
//   - influxstream_series_cache_misses_total - Cache misses
//   - influxstream_series_cache_errors_total{operation} - Operation errors
//   - influxstream_series_cache_entry_bytes - Encoded entry sizes
package cache
