package influx

import (
	"fmt"
	"strings"
)

// EscapeTagValue escapes a tag value for use inside an InfluxQL single
// quoted string literal.
func EscapeTagValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

// Selector returns the filter expression selecting exactly this series:
// a conjunction of tag equality predicates in tag order, e.g.
//
//	host::tag='server01' AND region::tag='us-west'
//
// An empty tag set yields an empty selector.
func (s Series) Selector() string {
	if len(s.Tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		parts = append(parts, fmt.Sprintf("%s::tag='%s'", t.Key, EscapeTagValue(t.Value)))
	}
	return strings.Join(parts, " AND ")
}

// JoinSelectors combines filter expressions into one conjunction. Empty
// expressions are dropped. A single remaining expression is returned
// unmodified; several are each parenthesized and joined with AND. No
// expression at all yields the unrestricted filter "".
func JoinSelectors(selectors ...string) string {
	parts := selectors[:0:0]
	for _, s := range selectors {
		if s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	wrapped := make([]string, len(parts))
	for i, s := range parts {
		wrapped[i] = "(" + s + ")"
	}
	return strings.Join(wrapped, " AND ")
}

// ParseSeriesKey parses one key from a SHOW SERIES result. The first
// comma-separated segment is the measurement, the remaining segments are
// key=value tag pairs in order. Segments without a value are kept with an
// empty value.
func ParseSeriesKey(key string) Series {
	segs := strings.Split(key, ",")
	s := Series{Key: key}
	if len(segs) < 2 {
		return s
	}
	s.Tags = make([]Tag, 0, len(segs)-1)
	for _, seg := range segs[1:] {
		k, v, _ := strings.Cut(seg, "=")
		s.Tags = append(s.Tags, Tag{Key: k, Value: v})
	}
	return s
}
