package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-medallion/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the CSV files into the bronze layer",
	Long: `Read both CSV files, infer column types and replace the bronze tables
with their contents. Null customer ids and duplicate rows are counted but
kept; the clean stage removes them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyPipelineFlags()
		if err := cfg.ValidateIngest(); err != nil {
			return err
		}
		return runStage(cmd, func(ctx context.Context, p *pipeline.Pipeline, sum *pipeline.Summary) (err error) {
			sum.Bronze, err = p.Bronze(ctx)
			return err
		})
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Build the silver layer from the bronze tables",
	Long: `Drop rows without a customer id and exact duplicate rows from each bronze
table and replace the silver tables with the result. Layout hints are
applied when the engine supports them.

On PostgreSQL replacing a silver table drops the gold reporting view with it.
When the gold fact table exists the view is recreated over it; otherwise it
stays absent until aggregate runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyPipelineFlags()
		if err := cfg.ValidateClean(); err != nil {
			return err
		}
		return runStage(cmd, func(ctx context.Context, p *pipeline.Pipeline, sum *pipeline.Summary) (err error) {
			sum.Silver, err = p.Silver(ctx)
			return err
		})
	},
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Build the gold fact table and reporting view",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyPipelineFlags()
		if err := cfg.ValidateClean(); err != nil {
			return err
		}
		return runStage(cmd, func(ctx context.Context, p *pipeline.Pipeline, sum *pipeline.Summary) (err error) {
			sum.Gold, err = p.Gold(ctx)
			return err
		})
	},
}

func init() {
	addPipelineFlags(ingestCmd)
	addPipelineFlags(cleanCmd)
	addPipelineFlags(aggregateCmd)
}

// runStage executes a single stage in its own run and prints what it wrote.
func runStage(cmd *cobra.Command, stage func(ctx context.Context, p *pipeline.Pipeline, sum *pipeline.Summary) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	p := newPipeline(eng)
	if err := p.Prepare(ctx); err != nil {
		return err
	}

	start := time.Now()
	sum := &pipeline.Summary{RunID: p.RunID()}
	if err := stage(ctx, p, sum); err != nil {
		return err
	}
	sum.Duration = time.Since(start)
	return sum.Print(cmd.OutOrStdout())
}
