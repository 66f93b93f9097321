//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-medallion.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-medallion/internal/config"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
	"github.com/pgEdge/pgedge-medallion/internal/pipeline"
	"github.com/pgEdge/pgedge-medallion/internal/store"
	"github.com/pgEdge/pgedge-medallion/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	engineName string
	connection string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-medallion",
		Short: "Bronze/silver/gold pipeline for customer and transaction data",
		Long: `pgedge-medallion loads raw customer and transaction CSV files into a
bronze layer, cleans them into a silver layer, joins them into a gold
fact table and reporting view, and runs analytical reports over every
layer.

Tables live in PostgreSQL or in an embedded DuckDB database. Every run
replaces the layers it writes, so rerunning is always safe.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-medallion.yaml)")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "",
		"SQL engine: postgres or duckdb")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string or DuckDB file (empty for in-memory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(runsCmd)
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if engineName != "" {
		cfg.Engine = engineName
	}
	if cmd.Flags().Changed("connection") {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func openEngine(ctx context.Context) (engine.Engine, error) {
	eng, err := engine.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Engine, err)
	}
	logging.Debug().
		Str("engine", cfg.Engine).
		Msg("Connected")
	return eng, nil
}

func newStore(eng engine.Engine) *store.Store {
	return store.New(eng, pipeline.StoreOptions(cfg))
}

func newPipeline(eng engine.Engine) *pipeline.Pipeline {
	return pipeline.New(newStore(eng), pipeline.OptionsFromConfig(cfg))
}
