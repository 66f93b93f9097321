package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/engine/enginetest"
	"github.com/pgEdge/pgedge-medallion/internal/store"
)

// postgresFake answers the catalog lookups the silver and gold stages make
// on a PostgreSQL dialect.
func postgresFake() *enginetest.Fake {
	f := enginetest.New(engine.PostgresDialect)
	f.QueryFunc = func(sql string, args []any) (*engine.ResultSet, error) {
		switch {
		case strings.Contains(sql, "information_schema.columns"):
			return &engine.ResultSet{
				Columns: []string{"column_name", "data_type"},
				Rows:    [][]any{{"customer_id", "bigint"}, {"transaction_date", "date"}},
			}, nil
		case strings.HasPrefix(sql, "SELECT DISTINCT"):
			return &engine.ResultSet{Rows: [][]any{{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}}}, nil
		default:
			return &engine.ResultSet{Columns: []string{"count"}, Rows: [][]any{{int64(1)}}}, nil
		}
	}
	return f
}

func fakePipeline(f *enginetest.Fake) *Pipeline {
	opts := Options{
		TransactionPartitionColumn: catalog.ColTransactionDate,
		CustomerBucketColumn:       catalog.ColCustomerID,
		CustomerBuckets:            8,
		Parallel:                   true,
		RecordRuns:                 true,
	}
	return New(store.New(f, store.DefaultOptions()), opts)
}

func TestSilverAppliesLayoutOnPostgres(t *testing.T) {
	f := postgresFake()
	results, err := fakePipeline(f).Silver(context.Background())
	if err != nil {
		t.Fatalf("Silver: %v", err)
	}

	for _, r := range results {
		if !r.LayoutApplied {
			t.Errorf("%s: layout %s not applied", r.Table, r.Layout)
		}
	}
	if got := len(f.Matching(`CREATE TABLE "silver"."customer_silver_b`)); got != 8 {
		t.Errorf("customer buckets = %d, want 8", got)
	}
	if got := f.Matching(`CREATE TABLE "silver"."transactions_silver" (`); len(got) != 1 ||
		!strings.Contains(got[0], `PARTITION BY LIST ("transaction_date")`) {
		t.Errorf("transactions parent DDL = %v", got)
	}

	clean := f.Matching(`CREATE TABLE "silver"."customer_silver__stage" AS`)
	want := `CREATE TABLE "silver"."customer_silver__stage" AS SELECT DISTINCT * FROM "bronze"."customer_bronze" WHERE "customer_id" IS NOT NULL`
	if len(clean) != 1 || clean[0] != want {
		t.Errorf("clean statement = %v", clean)
	}
	if got := countContaining(f, `INSERT INTO "medallion"."pipeline_runs"`); got != 2 {
		t.Errorf("recorded %d silver runs, want 2", got)
	}
}

func countContaining(f *enginetest.Fake, sub string) int {
	n := 0
	for _, s := range f.Statements() {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

func TestGoldStatements(t *testing.T) {
	f := postgresFake()
	res, err := fakePipeline(f).Gold(context.Background())
	if err != nil {
		t.Fatalf("Gold: %v", err)
	}
	if res.View != catalog.CustomerTransactionsView || res.Fact.Table != catalog.FactTransactions {
		t.Errorf("result = %+v", res)
	}

	fact := f.Matching(`CREATE TABLE "gold"."fact_transactions__stage" AS`)
	if len(fact) != 1 {
		t.Fatalf("fact statements = %v", fact)
	}
	for _, part := range []string{
		"t.transaction_id, t.customer_id",
		"c.previous_campaign_outcome",
		`FROM "silver"."transactions_silver" t JOIN "silver"."customer_silver" c ON t.customer_id = c.customer_id`,
	} {
		if !strings.Contains(fact[0], part) {
			t.Errorf("fact statement lacks %q: %s", part, fact[0])
		}
	}

	view := f.Matching(`CREATE VIEW "gold"."customer_transactions_vw" AS`)
	if len(view) != 1 || !strings.Contains(view[0], "SELECT c.customer_id, c.age, c.job, t.balance, t.transaction_id") {
		t.Errorf("view statement = %v", view)
	}
	if len(f.Matching(`DROP VIEW IF EXISTS "gold"."customer_transactions_vw" CASCADE`)) != 1 {
		t.Error("view was not replaced")
	}
}

func TestSilverRestoresReportingView(t *testing.T) {
	tests := []struct {
		name        string
		dialect     engine.Dialect
		factExists  bool
		wantCreated int
	}{
		{name: "postgres with fact table", dialect: engine.PostgresDialect, factExists: true, wantCreated: 1},
		{name: "postgres before first aggregate", dialect: engine.PostgresDialect, factExists: false, wantCreated: 0},
		{name: "duckdb keeps its view", dialect: engine.DuckDBDialect, factExists: true, wantCreated: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := postgresFake()
			f.D = tt.dialect
			lookup := f.QueryFunc
			f.QueryFunc = func(sql string, args []any) (*engine.ResultSet, error) {
				if strings.Contains(sql, "information_schema.tables") && len(args) == 2 && args[1] == catalog.FactTransactions.Name {
					n := int64(0)
					if tt.factExists {
						n = 1
					}
					return &engine.ResultSet{Columns: []string{"count"}, Rows: [][]any{{n}}}, nil
				}
				return lookup(sql, args)
			}

			if _, err := fakePipeline(f).Silver(context.Background()); err != nil {
				t.Fatalf("Silver: %v", err)
			}
			if got := len(f.Matching(`CREATE VIEW "gold"."customer_transactions_vw" AS`)); got != tt.wantCreated {
				t.Errorf("view created %d times, want %d", got, tt.wantCreated)
			}
		})
	}
}

func TestGoldFailureIsRecorded(t *testing.T) {
	f := postgresFake()
	boom := errors.New("boom")
	f.ExecFunc = func(sql string) error {
		if strings.HasPrefix(sql, "CREATE VIEW") {
			return boom
		}
		return nil
	}

	_, err := fakePipeline(f).Gold(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Gold error = %v, want boom", err)
	}

	stmts := f.Statements()
	var rolledBack, recorded bool
	for _, s := range stmts {
		if s == enginetest.Rollback {
			rolledBack = true
		}
		if strings.Contains(s, `INSERT INTO "medallion"."pipeline_runs"`) {
			recorded = true
		}
	}
	if !rolledBack {
		t.Error("view transaction was not rolled back")
	}
	if !recorded {
		t.Error("failure was not written to the run log")
	}
}

func TestDuckDBDialectSerializesStages(t *testing.T) {
	f := enginetest.New(engine.DuckDBDialect)
	f.QueryFunc = func(string, []any) (*engine.ResultSet, error) {
		return &engine.ResultSet{Rows: [][]any{{int64(0)}}}, nil
	}
	if _, err := fakePipeline(f).Silver(context.Background()); err != nil {
		t.Fatalf("Silver: %v", err)
	}

	// With one writer at a time each transaction closes before the next opens.
	depth := 0
	for _, s := range f.Statements() {
		switch s {
		case enginetest.Begin:
			depth++
			if depth > 1 {
				t.Fatal("transactions overlapped on a single-writer engine")
			}
		case enginetest.Commit, enginetest.Rollback:
			depth--
		}
	}
}
