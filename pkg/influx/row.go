package influx

// Row is a single data point keyed by column name.
type Row map[string]any

// Tag is one key/value pair of a series key.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Series identifies one distinct tag combination of a measurement.
// Tags preserve the order of the series key they were parsed from.
type Series struct {
	// Key is the raw series key as reported by SHOW SERIES,
	// e.g. `cpu,host=server01,region=us-west`.
	Key string `json:"key"`

	// Tags are the key/value pairs of the series key, measurement
	// segment excluded.
	Tags []Tag `json:"tags"`
}

// Measurement returns the measurement segment of the series key.
func (s Series) Measurement() string {
	for i := 0; i < len(s.Key); i++ {
		if s.Key[i] == ',' {
			return s.Key[:i]
		}
	}
	return s.Key
}

// Page is the result of one bounded query: the rows found at a given
// offset. A page with zero rows is valid and marks the end of a stream.
type Page struct {
	Offset int
	Limit  int
	Rows   []Row
}

// Empty reports whether the page holds no rows.
func (p Page) Empty() bool {
	return len(p.Rows) == 0
}

// Len returns the number of rows in the page.
func (p Page) Len() int {
	return len(p.Rows)
}

// SeriesResult is one decoded series block of a query result:
// column names plus value tuples, with the group-by tags if any.
type SeriesResult struct {
	Name    string            `json:"name"`
	Tags    map[string]string `json:"tags,omitempty"`
	Columns []string          `json:"columns"`
	Values  [][]any           `json:"values"`
}

// Rows merges columns and value tuples into rows. Tuples shorter than
// the column list are padded with nil.
func (sr SeriesResult) Rows() []Row {
	rows := make([]Row, 0, len(sr.Values))
	for _, tuple := range sr.Values {
		row := make(Row, len(sr.Columns))
		for i, col := range sr.Columns {
			if i < len(tuple) {
				row[col] = tuple[i]
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ResultSet is the decoded result of one query statement.
type ResultSet struct {
	Series []SeriesResult `json:"series,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// Rows returns the rows of all series blocks in result order.
func (rs *ResultSet) Rows() []Row {
	if rs == nil {
		return nil
	}
	var rows []Row
	for _, sr := range rs.Series {
		rows = append(rows, sr.Rows()...)
	}
	return rows
}

// Empty reports whether the result holds no values at all.
func (rs *ResultSet) Empty() bool {
	if rs == nil {
		return true
	}
	for _, sr := range rs.Series {
		if len(sr.Values) > 0 {
			return false
		}
	}
	return true
}
