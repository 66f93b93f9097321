//go:build integration
// +build integration

// Integration tests against PostgreSQL.
// Run with: go test -tags=integration ./internal/pipeline/...
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package pipeline_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgEdge/pgedge-medallion/internal/config"
	"github.com/pgEdge/pgedge-medallion/internal/datagen"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/pipeline"
	"github.com/pgEdge/pgedge-medallion/internal/reports"
	"github.com/pgEdge/pgedge-medallion/internal/store"
	"github.com/pgEdge/pgedge-medallion/internal/testutil"
)

func generated(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Generate.Customers = 300
	cfg.Generate.Transactions = 3000
	cfg.Generate.Seed = 11
	cfg.Generate.OutputDir = t.TempDir()

	sum, err := datagen.Generate(context.Background(), datagen.OptionsFromConfig(cfg.Generate))
	if err != nil {
		t.Fatalf("Failed to generate datasets: %v", err)
	}
	cfg.Sources.Customers = sum.Customers.Path
	cfg.Sources.Transactions = sum.Transactions.Path
	return cfg
}

func run(t *testing.T, eng engine.Engine, cfg *config.Config) *pipeline.Summary {
	t.Helper()
	p := pipeline.New(store.New(eng, pipeline.StoreOptions(cfg)), pipeline.OptionsFromConfig(cfg))
	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run on %s: %v", eng.Dialect().Name, err)
	}
	if !sum.Reconciliation.OK() {
		t.Errorf("%s: layers do not reconcile: %v", eng.Dialect().Name, sum.Reconciliation.Err())
	}
	return sum
}

func TestPostgresPipeline(t *testing.T) {
	ctx := context.Background()
	eng := testutil.NewPostgres(t, "pipeline")
	cfg := generated(t)

	sum := run(t, eng, cfg)
	for _, s := range sum.Silver {
		if !s.LayoutApplied {
			t.Errorf("%s: layout not applied: %s", s.Table, s.LayoutNote)
		}
	}
	if !sum.Gold.Fact.LayoutApplied {
		t.Errorf("fact layout not applied: %s", sum.Gold.Fact.LayoutNote)
	}

	parts, err := engine.ScalarInt(ctx, eng, `SELECT COUNT(*) FROM pg_inherits i
		JOIN pg_class c ON c.oid = i.inhparent
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = 'silver' AND c.relname = 'customer_silver'`)
	if err != nil {
		t.Fatal(err)
	}
	if parts != int64(cfg.Layout.CustomerBuckets) {
		t.Errorf("customer_silver has %d partitions, want %d", parts, cfg.Layout.CustomerBuckets)
	}

	// Rerun replaces every layer, partitioned tables included.
	again := run(t, eng, cfg)
	if diff := cmp.Diff(sum.Reconciliation.Counts, again.Reconciliation.Counts); diff != "" {
		t.Errorf("rerun changed layer counts (-first +second):\n%s", diff)
	}
}

func TestEnginesAgree(t *testing.T) {
	ctx := context.Background()
	pg := testutil.NewPostgres(t, "agree")
	duck := testutil.NewDuckDB(t)
	cfg := generated(t)

	pgSum, duckSum := run(t, pg, cfg), run(t, duck, cfg)
	if diff := cmp.Diff(duckSum.Reconciliation.Counts, pgSum.Reconciliation.Counts); diff != "" {
		t.Errorf("layer counts differ (-duckdb +postgres):\n%s", diff)
	}

	pgResults, err := reports.NewRunner(pg, 4).Run(ctx, reports.All())
	if err != nil {
		t.Fatalf("reports on postgres: %v", err)
	}
	duckResults, err := reports.NewRunner(duck, 4).Run(ctx, reports.All())
	if err != nil {
		t.Fatalf("reports on duckdb: %v", err)
	}
	for i := range pgResults {
		name := pgResults[i].Definition.Name
		if got, want := pgResults[i].Rows.Len(), duckResults[i].Rows.Len(); got != want {
			t.Errorf("%s: postgres returned %d rows, duckdb %d", name, got, want)
		}
		if diff := cmp.Diff(duckResults[i].Rows.Columns, pgResults[i].Rows.Columns); diff != "" {
			t.Errorf("%s: columns differ (-duckdb +postgres):\n%s", name, diff)
		}
	}

	idx := indexOf(t, "status_category_counts")
	if diff := cmp.Diff(duckResults[idx].Rows.Rows, pgResults[idx].Rows.Rows); diff != "" {
		t.Errorf("status counts differ (-duckdb +postgres):\n%s", diff)
	}
}

func indexOf(t *testing.T, name string) int {
	t.Helper()
	for i, n := range reports.List() {
		if n == name {
			return i
		}
	}
	t.Fatalf("report %s not registered", name)
	return -1
}
