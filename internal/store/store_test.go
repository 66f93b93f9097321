package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/engine/enginetest"
	"github.com/pgEdge/pgedge-medallion/internal/sqlq"
	"github.com/pgEdge/pgedge-medallion/internal/testutil"
)

var sampleColumns = []catalog.Column{
	{Name: "customer_id", Type: catalog.TypeInteger},
	{Name: "job", Type: catalog.TypeText},
}

func newDuckStore(t *testing.T) *Store {
	t.Helper()
	s := New(testutil.NewDuckDB(t), Options{ApplyLayout: true, MaxPartitions: 10, BatchSize: 2})
	if err := s.EnsureLayers(context.Background()); err != nil {
		t.Fatalf("EnsureLayers: %v", err)
	}
	return s
}

func TestLoadTableReplaces(t *testing.T) {
	ctx := context.Background()
	s := newDuckStore(t)

	rows := [][]any{{int64(1), "admin"}, {int64(2), "chef"}, {nil, "chef"}}
	n, err := s.LoadTable(ctx, catalog.CustomerBronze, sampleColumns, rows)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if n != 3 {
		t.Errorf("loaded %d rows, want 3", n)
	}

	// A second load overwrites rather than appends.
	if _, err := s.LoadTable(ctx, catalog.CustomerBronze, sampleColumns, rows[:1]); err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	count, err := s.Count(ctx, catalog.CustomerBronze)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Count after reload = %d, want 1", count)
	}

	cols, err := s.Columns(ctx, catalog.CustomerBronze)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || cols[0].Name != "customer_id" || cols[1].Name != "job" {
		t.Errorf("Columns = %+v", cols)
	}

	ok, err := s.Exists(ctx, catalog.CustomerBronze)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	ok, err = s.Exists(ctx, catalog.CustomerSilver)
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestMaterializeOnDuckDBRecordsLayout(t *testing.T) {
	ctx := context.Background()
	s := newDuckStore(t)

	rows := [][]any{{int64(1), "admin"}, {int64(1), "admin"}, {nil, "chef"}}
	if _, err := s.LoadTable(ctx, catalog.CustomerBronze, sampleColumns, rows); err != nil {
		t.Fatal(err)
	}

	q := sqlq.Select().Distinct().From(catalog.CustomerBronze.Ident()).Where(sqlq.IsNotNull("customer_id"))
	res, err := s.Materialize(ctx, catalog.CustomerSilver, q, catalog.BucketedBy("customer_id", 8))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Rows != 1 {
		t.Errorf("Rows = %d, want 1", res.Rows)
	}
	if res.LayoutApplied {
		t.Error("layout should be advisory on duckdb")
	}
	if !strings.Contains(res.LayoutNote, "advisory") {
		t.Errorf("LayoutNote = %q", res.LayoutNote)
	}
}

func TestCreateViewReplaces(t *testing.T) {
	ctx := context.Background()
	s := newDuckStore(t)

	if _, err := s.LoadTable(ctx, catalog.CustomerBronze, sampleColumns, [][]any{{int64(1), "admin"}}); err != nil {
		t.Fatal(err)
	}
	view := catalog.Gold.Table("jobs_vw")
	for range 2 {
		if err := s.CreateView(ctx, view, sqlq.Select("job").From(catalog.CustomerBronze.Ident())); err != nil {
			t.Fatalf("CreateView: %v", err)
		}
	}
	n, err := s.Count(ctx, view)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("view count = %d, want 1", n)
	}
}

// pgFake answers the catalog queries issued while building a partitioned
// table on the PostgreSQL dialect.
func pgFake(distinct [][]any) *enginetest.Fake {
	f := enginetest.New(engine.PostgresDialect)
	f.QueryFunc = func(sql string, args []any) (*engine.ResultSet, error) {
		switch {
		case strings.Contains(sql, "information_schema.columns"):
			return &engine.ResultSet{
				Columns: []string{"column_name", "data_type"},
				Rows:    [][]any{{"customer_id", "bigint"}, {"transaction_date", "date"}},
			}, nil
		case strings.HasPrefix(sql, "SELECT DISTINCT"):
			return &engine.ResultSet{Columns: []string{"transaction_date"}, Rows: distinct}, nil
		default:
			return &engine.ResultSet{Columns: []string{"count"}, Rows: [][]any{{int64(4)}}}, nil
		}
	}
	return f
}

func TestMaterializeHashPartitionsOnPostgres(t *testing.T) {
	f := pgFake(nil)
	s := New(f, DefaultOptions())

	q := sqlq.Select().Distinct().From(catalog.CustomerBronze.Ident())
	res, err := s.Materialize(context.Background(), catalog.CustomerSilver, q, catalog.BucketedBy("customer_id", 4))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !res.LayoutApplied || res.Rows != 4 {
		t.Errorf("result = %+v", res)
	}

	stmts := f.Statements()
	if stmts[0] != enginetest.Begin || stmts[len(stmts)-1] != enginetest.Commit {
		t.Errorf("write not wrapped in one transaction: %v", stmts)
	}
	if got := f.Matching(`CREATE TABLE "silver"."customer_silver" (`); len(got) != 1 ||
		!strings.HasSuffix(got[0], `PARTITION BY HASH ("customer_id")`) {
		t.Errorf("parent DDL = %v", got)
	}
	parts := f.Matching(`CREATE TABLE "silver"."customer_silver_b`)
	if len(parts) != 4 {
		t.Fatalf("got %d hash partitions, want 4", len(parts))
	}
	if !strings.Contains(parts[3], "MODULUS 4, REMAINDER 3") {
		t.Errorf("last partition = %s", parts[3])
	}
	if len(f.Matching(`INSERT INTO "silver"."customer_silver" SELECT * FROM "silver"."customer_silver__stage"`)) != 1 {
		t.Error("stage rows were not copied into the partitioned table")
	}
}

func TestMaterializeListPartitionsOnPostgres(t *testing.T) {
	d1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	f := pgFake([][]any{{d1}, {d2}})
	s := New(f, DefaultOptions())

	q := sqlq.Select().From(catalog.TransactionsBronze.Ident())
	res, err := s.Materialize(context.Background(), catalog.TransactionsSilver, q, catalog.PartitionedBy("transaction_date"))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !res.LayoutApplied {
		t.Error("expected layout to be applied")
	}

	want := []string{
		`CREATE TABLE "silver"."transactions_silver_p0000" PARTITION OF "silver"."transactions_silver" FOR VALUES IN (DATE '2023-01-01')`,
		`CREATE TABLE "silver"."transactions_silver_p0001" PARTITION OF "silver"."transactions_silver" FOR VALUES IN (DATE '2023-01-02')`,
		`CREATE TABLE "silver"."transactions_silver_default" PARTITION OF "silver"."transactions_silver" DEFAULT`,
	}
	var got []string
	for _, stmt := range f.Statements() {
		if strings.Contains(stmt, "PARTITION OF") {
			got = append(got, stmt)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("partition DDL mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterializeTooManyPartitionsFallsBack(t *testing.T) {
	f := pgFake([][]any{{"a"}, {"b"}, {"c"}})
	s := New(f, Options{ApplyLayout: true, MaxPartitions: 2})

	res, err := s.Materialize(context.Background(), catalog.TransactionsSilver,
		sqlq.Select().From(catalog.TransactionsBronze.Ident()), catalog.PartitionedBy("transaction_date"))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.LayoutApplied || res.LayoutNote == "" {
		t.Errorf("expected fallback, got %+v", res)
	}
	if len(f.Matching(`ALTER TABLE "silver"."transactions_silver__stage" RENAME TO "transactions_silver"`)) != 1 {
		t.Errorf("stage table was not renamed: %v", f.Statements())
	}
}

func TestMaterializeLayoutDisabled(t *testing.T) {
	f := pgFake(nil)
	s := New(f, Options{ApplyLayout: false})

	res, err := s.Materialize(context.Background(), catalog.CustomerSilver,
		sqlq.Select().From(catalog.CustomerBronze.Ident()), catalog.BucketedBy("customer_id", 8))
	if err != nil {
		t.Fatal(err)
	}
	if res.LayoutApplied {
		t.Error("layout applied although disabled")
	}
	if len(f.Matching("CREATE TABLE")) != 1 {
		t.Errorf("expected a single CTAS, got %v", f.Matching("CREATE TABLE"))
	}
}

func TestMaterializeRejectsInvalidLayout(t *testing.T) {
	s := New(pgFake(nil), DefaultOptions())
	_, err := s.Materialize(context.Background(), catalog.CustomerSilver,
		sqlq.Select().From("x"), catalog.Layout{PartitionBy: "a", BucketBy: "b", Buckets: 2})
	if err == nil {
		t.Error("expected error for conflicting layout")
	}
}

func TestRunLog(t *testing.T) {
	ctx := context.Background()
	s := newDuckStore(t)
	if err := s.EnsureRunLog(ctx); err != nil {
		t.Fatalf("EnsureRunLog: %v", err)
	}

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []StageRun{
		{RunID: "r1", Stage: "bronze", Dataset: "customers", Status: RunSucceeded,
			StartedAt: start, FinishedAt: start.Add(time.Second), RowsIn: 100, RowsOut: 100, Detail: "null_keys=5"},
		{RunID: "r1", Stage: "silver", Dataset: "customers", Status: RunFailed,
			StartedAt: start.Add(time.Minute), FinishedAt: start.Add(2 * time.Minute), Error: "boom"},
	}
	for _, r := range runs {
		if err := s.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	got, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	want := []StageRun{runs[1], runs[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RecentRuns mismatch (-want +got):\n%s", diff)
	}
	if got[1].Duration() != time.Second {
		t.Errorf("Duration = %s", got[1].Duration())
	}
}
