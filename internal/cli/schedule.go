package cli

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
)

var scheduleEvery time.Duration

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rerun the full pipeline on a fixed interval",
	Long: `Run the full pipeline immediately and then every interval until
interrupted with Ctrl+C. A run that is still going when the next one is
due delays it rather than overlapping. A failed run is logged and the
schedule continues.

Example:
  pgedge-medallion schedule --every 30m`,
	RunE: runSchedule,
}

func init() {
	addPipelineFlags(scheduleCmd)
	scheduleCmd.Flags().DurationVar(&scheduleEvery, "every", 0,
		"interval between runs (default: 1h)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	applyPipelineFlags()
	if scheduleEvery > 0 {
		cfg.Schedule.Interval = scheduleEvery
	}
	if err := cfg.ValidateSchedule(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(cfg.Schedule.Interval).SingletonMode().Do(func() {
		scheduledRun(ctx, eng)
	})
	if err != nil {
		return err
	}

	logging.Info().
		Dur("interval", cfg.Schedule.Interval).
		Msg("Starting scheduler")
	scheduler.StartAsync()

	<-ctx.Done()

	scheduler.Stop()
	logging.Info().Msg("Scheduler stopped")
	return nil
}

func scheduledRun(ctx context.Context, eng engine.Engine) {
	if ctx.Err() != nil {
		return
	}
	p := newPipeline(eng)
	sum, err := p.Run(ctx)
	if err != nil {
		logging.Error().
			Err(err).
			Str("run_id", p.RunID()).
			Msg("Scheduled run failed")
		return
	}
	if !sum.Reconciliation.OK() {
		logging.Warn().
			Str("run_id", sum.RunID).
			Err(sum.Reconciliation.Err()).
			Msg("Scheduled run did not reconcile")
	}
}
