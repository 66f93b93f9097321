package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-medallion/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestEndToEnd(t *testing.T) {
	t.Chdir(t.TempDir())
	db := []string{"--engine", config.EngineDuckDB, "--connection", "medallion.duckdb", "--log-level", "error"}

	out, err := execute(t, "generate", "--customers", "50", "--transactions", "300", "--seed", "7", "--output-dir", ".")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "customer_dataset.csv") {
		t.Errorf("generate output missing file name:\n%s", out)
	}

	out, err = execute(t, append([]string{"run", "--strict"}, db...)...)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"bronze.customer_bronze", "silver.transactions_silver", "gold.fact_transactions"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %s:\n%s", want, out)
		}
	}

	out, err = execute(t, append([]string{"report", "--layer", "gold", "--preview", "3"}, db...)...)
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}
	if !strings.Contains(out, "== top_weekly_net_spender (gold)") {
		t.Errorf("report output missing gold report:\n%s", out)
	}

	out, err = execute(t, append([]string{"reconcile", "--strict"}, db...)...)
	if err != nil {
		t.Fatalf("reconcile: %v\n%s", err, out)
	}

	out, err = execute(t, append([]string{"chart", "--output", "chart.svg", "--width", "6", "--height", "4"}, db...)...)
	if err != nil {
		t.Fatalf("chart: %v\n%s", err, out)
	}
	if info, err := os.Stat("chart.svg"); err != nil || info.Size() == 0 {
		t.Errorf("chart file not written: %v", err)
	}

	out, err = execute(t, append([]string{"runs", "--limit", "5"}, db...)...)
	if err != nil {
		t.Fatalf("runs: %v\n%s", err, out)
	}
	if !strings.Contains(out, "succeeded") {
		t.Errorf("runs output missing succeeded stages:\n%s", out)
	}
}

func TestReportErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := execute(t, "report", "--engine", config.EngineDuckDB, "--connection", "", "nope"); err == nil {
		t.Error("expected an error for an unknown report")
	}
	if _, err := execute(t, "report", "--engine", config.EngineDuckDB, "--connection", "", "--layer", "platinum"); err == nil {
		t.Error("expected an error for an unknown layer")
	}
	reportLayer = ""
}

func TestReportsList(t *testing.T) {
	out, err := execute(t, "reports")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"bronze:", "silver:", "gold:", "spender_segments"} {
		if !strings.Contains(out, want) {
			t.Errorf("reports output missing %q:\n%s", want, out)
		}
	}
}

func TestEngineFlagOverridesConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := execute(t, "version", "--engine", config.EnginePostgres, "--connection", "postgres://u@h/db"); err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != config.EnginePostgres || cfg.Connection != "postgres://u@h/db" {
		t.Errorf("flags not applied: engine=%s connection=%s", cfg.Engine, cfg.Connection)
	}
	engineName, connection = "", ""
}
