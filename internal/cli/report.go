package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/chart"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
	"github.com/pgEdge/pgedge-medallion/internal/pipeline"
	"github.com/pgEdge/pgedge-medallion/internal/reports"
)

var (
	reportLayer   string
	reportPreview int
	reportWorkers int

	reconcileStrict bool

	chartOutput string
	chartWidth  float64
	chartHeight float64

	runsLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report [name...]",
	Short: "Run analytical reports over the layers",
	Long: `Run the named reports, every report of one layer, or every report when
no name is given. Results are printed in definition order.

Use 'pgedge-medallion reports' to list the available reports.

Example:
  pgedge-medallion report
  pgedge-medallion report --layer gold
  pgedge-medallion report spender_segments job_amount_rank --preview 50`,
	RunE: runReport,
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List available reports",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available reports:")
		for _, layer := range catalog.Layers {
			cmd.Println()
			cmd.Printf("%s:\n", layer)
			for _, def := range reports.ByLayer(layer) {
				cmd.Printf("  %-30s - %s\n", def.Name, def.Description)
			}
		}
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare row counts across the layers",
	Long: `Count the rows of every bronze, silver and gold table and check that no
layer holds more rows than the one it was built from. Mismatches are
reported; nothing is corrected.`,
	RunE: runReconcile,
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render transaction totals by merchant category and job",
	Long: `Render total transaction amount per merchant category as horizontal
bars, one colored bar per job. The output format follows the file
extension (png, svg, pdf).`,
	RunE: runChart,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent pipeline stage runs",
	RunE:  runRuns,
}

func init() {
	reportCmd.Flags().StringVar(&reportLayer, "layer", "",
		"run every report of one layer: bronze, silver or gold")
	reportCmd.Flags().IntVar(&reportPreview, "preview", 0,
		"rows printed per report")
	reportCmd.Flags().IntVar(&reportWorkers, "workers", 0,
		"reports executed concurrently")

	reconcileCmd.Flags().BoolVar(&reconcileStrict, "strict", false,
		"exit with an error when layer counts do not reconcile")

	chartCmd.Flags().StringVar(&chartOutput, "output", "",
		"output file (default: category_job_totals.png)")
	chartCmd.Flags().Float64Var(&chartWidth, "width", 0,
		"width in inches")
	chartCmd.Flags().Float64Var(&chartHeight, "height", 0,
		"height in inches")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20,
		"number of stage runs to show")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportPreview > 0 {
		cfg.Report.PreviewRows = reportPreview
	}
	if reportWorkers > 0 {
		cfg.Report.Workers = reportWorkers
	}
	if err := cfg.ValidateReport(); err != nil {
		return err
	}

	defs, err := reports.Select(args)
	if err != nil {
		return err
	}
	if reportLayer != "" {
		if len(args) > 0 {
			return fmt.Errorf("report names and --layer are mutually exclusive")
		}
		layer, err := catalog.ParseLayer(reportLayer)
		if err != nil {
			return err
		}
		defs = reports.ByLayer(layer)
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	runner := reports.NewRunner(eng, cfg.Report.Workers)
	results, runErr := runner.Run(ctx, defs)
	for _, res := range results {
		if err := reports.Print(cmd.OutOrStdout(), res, cfg.Report.PreviewRows); err != nil {
			return err
		}
	}
	runner.LogSummary()
	return runErr
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	rec, err := pipeline.Reconcile(ctx, newStore(eng), nil)
	if err != nil {
		return err
	}
	if err := rec.Print(cmd.OutOrStdout()); err != nil {
		return err
	}
	if reconcileStrict {
		return rec.Err()
	}
	return nil
}

func runChart(cmd *cobra.Command, args []string) error {
	if chartOutput != "" {
		cfg.Chart.Output = chartOutput
	}
	if chartWidth > 0 {
		cfg.Chart.WidthInches = chartWidth
	}
	if chartHeight > 0 {
		cfg.Chart.HeightInches = chartHeight
	}
	if err := cfg.ValidateChart(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	data, err := chart.Load(ctx, eng)
	if err != nil {
		return err
	}

	opts := chart.DefaultOptions()
	opts.WidthInches = cfg.Chart.WidthInches
	opts.HeightInches = cfg.Chart.HeightInches
	if err := chart.Save(data, opts, cfg.Chart.Output); err != nil {
		return err
	}

	logging.Info().
		Str("output", cfg.Chart.Output).
		Int("categories", len(data.Categories)).
		Int("jobs", len(data.Groups)).
		Msg("Chart written")
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	runs, err := newStore(eng).RecentRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tSTAGE\tDATASET\tSTATUS\tROWS IN\tROWS OUT\tDURATION\tDETAIL")
	for _, r := range runs {
		detail := r.Detail
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Format(time.DateTime), shortID(r.RunID), r.Stage, r.Dataset,
			r.Status, r.RowsIn, r.RowsOut, r.Duration().Round(time.Millisecond), detail)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
