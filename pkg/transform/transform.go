// Package transform decorates row streams with derived fields:
// per-second rates of change and exponential smoothing.
package transform

import (
	"fmt"
	"time"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
)

// DiffOptions configures Differentiate.
type DiffOptions struct {
	// TimeField is the column carrying the row timestamp. Numeric
	// timestamps are taken as seconds. Defaults to "time".
	TimeField string

	// ClampNegative replaces negative rates with zero, for counters
	// that only move forward.
	ClampNegative bool
}

// Differentiate annotates each row with field+"_diff", the rate of
// change of the field against the previous row in per-second units.
// The first row passes through unannotated, as do rows whose value or
// timestamp is missing or non-numeric and rows that do not advance in
// time. Rows are annotated in place.
func Differentiate(src influx.RowSource, field string, opts DiffOptions) influx.RowSource {
	if opts.TimeField == "" {
		opts.TimeField = "time"
	}
	return &differentiator{
		src:       src,
		field:     field,
		timeField: opts.TimeField,
		clamp:     opts.ClampNegative,
	}
}

type differentiator struct {
	src       influx.RowSource
	field     string
	timeField string
	clamp     bool
	prevVal   float64
	prevTime  float64
	primed    bool
}

func (d *differentiator) Next() (influx.Row, error) {
	row, err := d.src.Next()
	if err != nil {
		return nil, err
	}

	val, okVal := numeric(row[d.field])
	ts, okTime := timeSeconds(row[d.timeField])
	if !okVal || !okTime {
		return row, nil
	}

	if !d.primed {
		d.prevVal, d.prevTime, d.primed = val, ts, true
		return row, nil
	}

	dt := ts - d.prevTime
	if dt <= 0 {
		d.prevVal, d.prevTime = val, ts
		return row, nil
	}

	rate := (val - d.prevVal) / dt
	if d.clamp && rate < 0 {
		rate = 0
	}
	d.prevVal, d.prevTime = val, ts

	row[d.field+"_diff"] = rate
	return row, nil
}

// Smooth annotates each row with field+"_smooth", an exponentially
// smoothed copy of the field: s = alpha*v + (1-alpha)*s. The state
// seeds with the first numeric value; rows without a numeric value
// pass through untouched. alpha must be in (0, 1].
func Smooth(src influx.RowSource, field string, alpha float64) (influx.RowSource, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in (0, 1], got %v", alpha)
	}
	return &smoother{src: src, field: field, alpha: alpha}, nil
}

type smoother struct {
	src    influx.RowSource
	field  string
	alpha  float64
	state  float64
	primed bool
}

func (s *smoother) Next() (influx.Row, error) {
	row, err := s.src.Next()
	if err != nil {
		return nil, err
	}

	val, ok := numeric(row[s.field])
	if !ok {
		return row, nil
	}

	if !s.primed {
		s.state, s.primed = val, true
	} else {
		s.state = s.alpha*val + (1-s.alpha)*s.state
	}

	row[s.field+"_smooth"] = s.state
	return row, nil
}

// numeric converts the value types that appear in decoded rows.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// timeSeconds converts a row timestamp to seconds. Accepts the
// numeric epoch values of raw results and the time.Time values left
// by timestamp formatting.
func timeSeconds(v any) (float64, bool) {
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixNano()) / float64(time.Second), true
	}
	return numeric(v)
}
