package client

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Sternrassler/influx-stream-client/internal/testutil"
	"github.com/Sternrassler/influx-stream-client/pkg/executor"
	"github.com/Sternrassler/influx-stream-client/pkg/influx"
)

const streamTemplate = `SELECT v FROM "m" LIMIT {limit} OFFSET {offset}`

// fiveRows serves five rows through the LIMIT/OFFSET template.
func fiveRows(exec *testutil.ScriptedExecutor) {
	exec.SetFallback(testutil.PagedFallback("m", []string{"time", "v"}, [][]any{
		{float64(10), float64(1)},
		{float64(20), float64(2)},
		{float64(30), float64(3)},
		{float64(40), float64(4)},
		{float64(50), float64(5)},
	}))
}

func drainValues(t *testing.T, rows influx.RowSource) []float64 {
	t.Helper()

	var got []float64
	for {
		row, err := rows.Next()
		if err == io.EOF {
			return got
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, row["v"].(float64))
	}
}

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name   string
		params QueryParams
		want   string
	}{
		{
			name:   "defaults to all fields",
			params: QueryParams{Measurement: "cpu"},
			want:   `SELECT * FROM "cpu" LIMIT {limit} OFFSET {offset}`,
		},
		{
			name:   "projected fields",
			params: QueryParams{Measurement: "cpu", Fields: []string{"time", "value"}},
			want:   `SELECT time, value FROM "cpu" LIMIT {limit} OFFSET {offset}`,
		},
		{
			name:   "with filter",
			params: QueryParams{Measurement: "cpu", Filter: "host::tag='a'"},
			want:   `SELECT * FROM "cpu" WHERE host::tag='a' LIMIT {limit} OFFSET {offset}`,
		},
		{
			name:   "with group by",
			params: QueryParams{Measurement: "cpu", GroupOrderBy: "time(1m)"},
			want:   `SELECT * FROM "cpu" GROUP BY time(1m) LIMIT {limit} OFFSET {offset}`,
		},
		{
			name: "all clauses",
			params: QueryParams{
				Measurement:  "cpu",
				Fields:       []string{"mean(value)"},
				Filter:       "time > now() - 1h",
				GroupOrderBy: "time(1m)",
			},
			want: `SELECT mean(value) FROM "cpu" WHERE time > now() - 1h GROUP BY time(1m) LIMIT {limit} OFFSET {offset}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSelect(tt.params); got != tt.want {
				t.Errorf("buildSelect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamQueryFlattensRows(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)
	c := newTestClient(t, exec)

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	if stream.Batched() {
		t.Error("Batched() = true, want false")
	}
	if stream.Pages() != nil {
		t.Error("Pages() should be nil in flattened mode")
	}

	got := drainValues(t, stream.Rows())
	want := []float64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: v = %v, want %v", i, got[i], want[i])
		}
	}

	// Pages of 2, 2, 1 plus the empty probe at offset 6.
	if exec.QueryCount() != 4 {
		t.Errorf("QueryCount = %d, want 4", exec.QueryCount())
	}
}

func TestStreamQueryBatchedKeepsPages(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)
	c := newTestClient(t, exec)

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{
		BatchSize: 2,
		Batched:   true,
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	if !stream.Batched() {
		t.Error("Batched() = false, want true")
	}

	pages, err := influx.CollectPages(stream.Pages())
	if err != nil {
		t.Fatalf("CollectPages() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	wantLens := []int{2, 2, 1}
	wantOffsets := []int{0, 2, 4}
	for i, page := range pages {
		if page.Len() != wantLens[i] {
			t.Errorf("page %d: %d rows, want %d", i, page.Len(), wantLens[i])
		}
		if page.Offset != wantOffsets[i] {
			t.Errorf("page %d: offset %d, want %d", i, page.Offset, wantOffsets[i])
		}
	}
}

func TestStreamBatchedRowsShareThePass(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)
	c := newTestClient(t, exec)

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{
		BatchSize: 2,
		Batched:   true,
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	// Consume the first page directly, then switch to the row view.
	page, err := stream.Pages().Next()
	if err != nil {
		t.Fatalf("Pages().Next() error = %v", err)
	}
	if page.Len() != 2 {
		t.Fatalf("first page has %d rows, want 2", page.Len())
	}

	rest := drainValues(t, stream.Rows())
	want := []float64{3, 4, 5}
	if len(rest) != len(want) {
		t.Fatalf("row view yielded %d rows, want %d", len(rest), len(want))
	}
	for i := range want {
		if rest[i] != want[i] {
			t.Errorf("row %d: v = %v, want %v", i, rest[i], want[i])
		}
	}
}

func TestStreamQueryAppliesTimeFormat(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)
	c := newTestClient(t, exec)

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{
		BatchSize:  2,
		TimeFormat: influx.TimeFormat{Field: "time", Epoch: influx.EpochSecond},
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	row, err := stream.Rows().Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	ts, ok := row["time"].(time.Time)
	if !ok {
		t.Fatalf("time column = %T, want time.Time", row["time"])
	}
	if ts.Unix() != 10 {
		t.Errorf("time = %v, want unix 10", ts)
	}
	if row["__time"] != float64(10) {
		t.Errorf("__time = %v, want raw value preserved", row["__time"])
	}
}

func TestStreamQueryBatchedAppliesTimeFormat(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)
	c := newTestClient(t, exec)

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{
		BatchSize:  2,
		Batched:    true,
		TimeFormat: influx.TimeFormat{Field: "time", Epoch: influx.EpochSecond},
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	page, err := stream.Pages().Next()
	if err != nil {
		t.Fatalf("Pages().Next() error = %v", err)
	}
	for i, row := range page.Rows {
		if _, ok := row["time"].(time.Time); !ok {
			t.Errorf("page row %d: time column = %T, want time.Time", i, row["time"])
		}
	}
}

func TestStreamQueryWithPool(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)

	cfg := DefaultConfig(exec, "testdb")
	cfg.Pool = executor.Inline{}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{
		BatchSize:   2,
		Parallelism: 3,
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	got := drainValues(t, stream.Rows())
	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
	for i, v := range got {
		if v != float64(i+1) {
			t.Errorf("row %d: v = %v, want %v", i, v, float64(i+1))
		}
	}

	// The window overscans past the end: sequences 0-5 are fetched.
	if exec.QueryCount() != 6 {
		t.Errorf("QueryCount = %d, want 6", exec.QueryCount())
	}
}

func TestStreamQueryNegativeParallelismSkipsPool(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	fiveRows(exec)

	cfg := DefaultConfig(exec, "testdb")
	cfg.Pool = executor.Inline{}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{
		BatchSize:   2,
		Parallelism: -1,
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	if got := drainValues(t, stream.Rows()); len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}

	// On-demand fetching probes exactly one query past the data.
	if exec.QueryCount() != 4 {
		t.Errorf("QueryCount = %d, want 4", exec.QueryCount())
	}
}

func TestStreamQueryRejectsBadTemplate(t *testing.T) {
	c := newTestClient(t, testutil.NewScriptedExecutor())

	_, err := c.StreamQuery(context.Background(), `SELECT v FROM "m"`, StreamOptions{})
	if err == nil {
		t.Fatal("StreamQuery() should reject a template without placeholders")
	}
}

func TestStreamParams(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	exec.Script(`SELECT time, v FROM "cpu" WHERE host::tag='a' LIMIT 2 OFFSET 0`,
		testutil.Result("cpu", []string{"time", "v"}, []any{float64(10), float64(1)}))
	exec.Script(`SELECT time, v FROM "cpu" WHERE host::tag='a' LIMIT 2 OFFSET 2`,
		testutil.EmptyResult())
	c := newTestClient(t, exec)

	stream, err := c.StreamParams(context.Background(), QueryParams{
		Measurement: "cpu",
		Fields:      []string{"time", "v"},
		Filter:      "host::tag='a'",
	}, StreamOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("StreamParams() error = %v", err)
	}

	got := drainValues(t, stream.Rows())
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("rows = %v, want [1]", got)
	}
}

func TestStreamParamsRequiresMeasurement(t *testing.T) {
	c := newTestClient(t, testutil.NewScriptedExecutor())

	_, err := c.StreamParams(context.Background(), QueryParams{}, StreamOptions{})
	if err == nil {
		t.Fatal("StreamParams() without a measurement should fail")
	}
}

func TestStreamMeasurement(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	exec.Script(`SHOW SERIES FROM "cpu"`, testutil.ShowSeriesResult(
		"cpu,host=a",
		"cpu,host=b",
	))
	exec.Script(`SELECT * FROM "cpu" WHERE host::tag='a' LIMIT 2 OFFSET 0`,
		testutil.Result("cpu", []string{"time", "v"},
			[]any{float64(10), float64(1)},
			[]any{float64(20), float64(2)},
		))
	exec.Script(`SELECT * FROM "cpu" WHERE host::tag='a' LIMIT 2 OFFSET 2`,
		testutil.EmptyResult())
	exec.Script(`SELECT * FROM "cpu" WHERE host::tag='b' LIMIT 2 OFFSET 0`,
		testutil.Result("cpu", []string{"time", "v"},
			[]any{float64(10), float64(3)},
		))
	exec.Script(`SELECT * FROM "cpu" WHERE host::tag='b' LIMIT 2 OFFSET 2`,
		testutil.EmptyResult())
	c := newTestClient(t, exec)

	streams, err := c.StreamMeasurement(context.Background(), "cpu", StreamOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("StreamMeasurement() error = %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}

	if streams[0].Series.Key != "cpu,host=a" {
		t.Errorf("streams[0].Series.Key = %q", streams[0].Series.Key)
	}
	if streams[0].Selector != "host::tag='a'" {
		t.Errorf("streams[0].Selector = %q", streams[0].Selector)
	}

	// Consuming the streams in discovery order concatenates the
	// measurement partition by partition.
	var all []float64
	for _, ss := range streams {
		all = append(all, drainValues(t, ss.Stream.Rows())...)
	}
	want := []float64{1, 2, 3}
	if len(all) != len(want) {
		t.Fatalf("got %d rows total, want %d", len(all), len(want))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("row %d: v = %v, want %v", i, all[i], want[i])
		}
	}
}

func TestStreamMeasurementCombinesFilters(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	exec.Script(`SHOW SERIES FROM "cpu"`, testutil.ShowSeriesResult("cpu,host=a"))
	exec.Script(`SELECT * FROM "cpu" WHERE (v > 0) AND (host::tag='a') LIMIT 2 OFFSET 0`,
		testutil.EmptyResult())
	c := newTestClient(t, exec)

	streams, err := c.StreamMeasurement(context.Background(), "cpu", StreamOptions{
		BatchSize: 2,
		Filter:    "v > 0",
	})
	if err != nil {
		t.Fatalf("StreamMeasurement() error = %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1", len(streams))
	}
	if streams[0].Selector != "(v > 0) AND (host::tag='a')" {
		t.Errorf("Selector = %q", streams[0].Selector)
	}

	if got := drainValues(t, streams[0].Stream.Rows()); len(got) != 0 {
		t.Errorf("rows = %v, want none", got)
	}
}

func TestStreamMeasurementDiscoveryError(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	wantErr := errors.New("database is locked")
	exec.ScriptErr(`SHOW SERIES FROM "cpu"`, wantErr)
	c := newTestClient(t, exec)

	_, err := c.StreamMeasurement(context.Background(), "cpu", StreamOptions{})
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestStreamRowsStickyAfterError(t *testing.T) {
	exec := testutil.NewScriptedExecutor()
	wantErr := errors.New("partition unavailable")
	exec.Script(`SELECT v FROM "m" LIMIT 2 OFFSET 0`,
		testutil.Result("m", []string{"time", "v"},
			[]any{float64(10), float64(1)},
			[]any{float64(20), float64(2)},
		))
	exec.ScriptErr(`SELECT v FROM "m" LIMIT 2 OFFSET 2`, wantErr)
	c := newTestClient(t, exec)

	stream, err := c.StreamQuery(context.Background(), streamTemplate, StreamOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	rows := stream.Rows()
	for i := 0; i < 2; i++ {
		if _, err := rows.Next(); err != nil {
			t.Fatalf("row %d: unexpected error %v", i, err)
		}
	}

	_, err = rows.Next()
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}

	// The failure is terminal; no further query is attempted.
	_, again := rows.Next()
	if !errors.Is(again, wantErr) {
		t.Errorf("repeated Next() error = %v, want the same failure", again)
	}
	if exec.QueryCount() != 2 {
		t.Errorf("QueryCount = %d, want 2", exec.QueryCount())
	}
}
