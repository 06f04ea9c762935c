package influx

import (
	"fmt"
	"time"
)

// Epoch is the precision unit of numeric timestamps in query results.
type Epoch string

const (
	EpochNanosecond  Epoch = "n"
	EpochMicrosecond Epoch = "u"
	EpochMillisecond Epoch = "ms"
	EpochSecond      Epoch = "s"
	EpochMinute      Epoch = "m"
	EpochHour        Epoch = "h"
)

// Duration returns the duration of one timestamp unit. Unknown units fall
// back to nanoseconds, the database's native precision.
func (e Epoch) Duration() time.Duration {
	switch e {
	case EpochNanosecond:
		return time.Nanosecond
	case EpochMicrosecond:
		return time.Microsecond
	case EpochMillisecond:
		return time.Millisecond
	case EpochSecond:
		return time.Second
	case EpochMinute:
		return time.Minute
	case EpochHour:
		return time.Hour
	default:
		return time.Nanosecond
	}
}

// TimeFunc converts a raw timestamp value at the given precision into its
// parsed form.
type TimeFunc func(value any, epoch Epoch) (any, error)

// ParseEpochTime is the stock TimeFunc. Numeric values are scaled by the
// epoch unit and converted to a UTC time.Time; strings are parsed as
// RFC3339; time.Time values pass through.
func ParseEpochTime(value any, epoch Epoch) (any, error) {
	unit := epoch.Duration()
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", v, err)
		}
		return t.UTC(), nil
	case float64:
		return time.Unix(0, int64(v*float64(unit))).UTC(), nil
	case int64:
		return time.Unix(0, v*int64(unit)).UTC(), nil
	case int:
		return time.Unix(0, int64(v)*int64(unit)).UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// TimeFormat describes the timestamp decoration applied to produced rows.
// The zero value disables decoration.
type TimeFormat struct {
	// Field is the column holding the raw timestamp (usually "time").
	Field string

	// Epoch is the precision unit of numeric timestamps.
	Epoch Epoch

	// Parse overrides the conversion function. Nil means ParseEpochTime.
	Parse TimeFunc
}

// Enabled reports whether decoration is configured.
func (f TimeFormat) Enabled() bool {
	return f.Field != ""
}

// Apply decorates a row in place: the raw value is preserved under
// "__"+Field and the field is replaced with the parsed value. Rows whose
// timestamp is missing or unparseable are returned untouched.
func (f TimeFormat) Apply(row Row) Row {
	if !f.Enabled() || row == nil {
		return row
	}
	raw, ok := row[f.Field]
	if !ok {
		return row
	}
	parse := f.Parse
	if parse == nil {
		parse = ParseEpochTime
	}
	parsed, err := parse(raw, f.Epoch)
	if err != nil {
		return row
	}
	row["__"+f.Field] = raw
	row[f.Field] = parsed
	return row
}

// FormatRows decorates every row of src with f. With decoration disabled
// src is returned as is.
func FormatRows(src RowSource, f TimeFormat) RowSource {
	if !f.Enabled() {
		return src
	}
	return &timeFormatter{src: src, format: f}
}

type timeFormatter struct {
	src    RowSource
	format TimeFormat
}

func (t *timeFormatter) Next() (Row, error) {
	row, err := t.src.Next()
	if err != nil {
		return nil, err
	}
	return t.format.Apply(row), nil
}
