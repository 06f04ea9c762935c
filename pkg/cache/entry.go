package cache

import (
	"time"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
)

// Entry is one cached series list.
type Entry struct {
	// Series is the discovered series list, in SHOW SERIES order.
	Series []influx.Series `json:"series"`

	// CachedAt is when the list was discovered.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry wraps a discovered series list with the current time.
func NewEntry(series []influx.Series) *Entry {
	return &Entry{
		Series:   series,
		CachedAt: time.Now().UTC(),
	}
}

// Age returns how long ago the list was discovered.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
