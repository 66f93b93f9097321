package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-medallion/internal/logging"
)

var (
	runCustomers    string
	runTransactions string
	runDelimiter    string
	runSampleRows   int
	runNoLayout     bool
	runSerial       bool
	runNoRecord     bool
	runStrict       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full bronze, silver and gold pipeline",
	Long: `Run every stage in order: load both CSV files into bronze tables,
clean them into silver tables, build the gold fact table and reporting
view, then reconcile row counts across the layers.

A failing stage stops the run; tables from earlier stages stay in place.

Example:
  pgedge-medallion run --customers customer_dataset.csv --transactions transactions_dataset.csv
  pgedge-medallion run --engine postgres --connection "postgres://..." --strict`,
	RunE: runRun,
}

func init() {
	addPipelineFlags(runCmd)
	runCmd.Flags().BoolVar(&runStrict, "strict", false,
		"exit with an error when layer counts do not reconcile")
}

// addPipelineFlags registers the flags shared by every command that
// writes layers.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runCustomers, "customers", "",
		"customer CSV file")
	cmd.Flags().StringVar(&runTransactions, "transactions", "",
		"transaction CSV file")
	cmd.Flags().StringVar(&runDelimiter, "delimiter", "",
		"CSV field delimiter (default: ,)")
	cmd.Flags().IntVar(&runSampleRows, "sample-rows", -1,
		"rows used for type inference (0 = all rows)")
	cmd.Flags().BoolVar(&runNoLayout, "no-layout", false,
		"do not apply partitioning or bucketing to silver and gold tables")
	cmd.Flags().BoolVar(&runSerial, "serial", false,
		"process the two datasets of each stage one after the other")
	cmd.Flags().BoolVar(&runNoRecord, "no-record", false,
		"do not write stage outcomes to the run log")
}

// applyPipelineFlags overrides config with the shared pipeline flags.
func applyPipelineFlags() {
	if runCustomers != "" {
		cfg.Sources.Customers = runCustomers
	}
	if runTransactions != "" {
		cfg.Sources.Transactions = runTransactions
	}
	if runDelimiter != "" {
		cfg.Ingest.Delimiter = runDelimiter
	}
	if runSampleRows >= 0 {
		cfg.Ingest.SampleRows = runSampleRows
	}
	if runNoLayout {
		cfg.Layout.Apply = false
	}
	if runSerial {
		cfg.Pipeline.Parallel = false
	}
	if runNoRecord {
		cfg.Pipeline.RecordRuns = false
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyPipelineFlags()

	// Validate configuration
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	logging.Info().
		Str("engine", cfg.Engine).
		Str("customers", cfg.Sources.Customers).
		Str("transactions", cfg.Sources.Transactions).
		Bool("layout", cfg.Layout.Apply).
		Msg("Starting pipeline")

	sum, err := newPipeline(eng).Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("pipeline interrupted: %w", err)
		}
		return err
	}

	if err := sum.Print(cmd.OutOrStdout()); err != nil {
		return err
	}
	if runStrict {
		return sum.Reconciliation.Err()
	}
	return nil
}
