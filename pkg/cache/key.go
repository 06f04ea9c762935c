package cache

import "strings"

// Key identifies one cached series list.
type Key struct {
	// Database is the database the measurement lives in.
	Database string

	// Measurement is the measurement whose series list is cached.
	Measurement string
}

// String generates the deterministic Redis key.
// Format: influxstream:series:<database>:<measurement>
//
// Example:
//
//	influxstream:series:telemetry:cpu
func (k Key) String() string {
	return strings.Join([]string{"influxstream", "series", k.Database, k.Measurement}, ":")
}
