//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-medallion.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Supported engine names.
const (
	EnginePostgres = "postgres"
	EngineDuckDB   = "duckdb"
)

// Config holds all configuration for pgedge-medallion.
type Config struct {
	// Engine selects the SQL engine: postgres or duckdb.
	Engine string `mapstructure:"engine"`

	// Connection is the PostgreSQL connection string or the DuckDB database
	// path (empty means in-memory for duckdb).
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	Sources  SourcesConfig  `mapstructure:"sources"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Report   ReportConfig   `mapstructure:"report"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Generate GenerateConfig `mapstructure:"generate"`
}

// SourcesConfig points at the raw CSV inputs.
type SourcesConfig struct {
	Customers    string `mapstructure:"customers"`
	Transactions string `mapstructure:"transactions"`
}

// IngestConfig controls CSV reading and schema inference.
type IngestConfig struct {
	// Delimiter is the single-character field separator.
	Delimiter string `mapstructure:"delimiter"`

	// SampleRows limits how many rows feed type inference (0 = all rows).
	SampleRows int `mapstructure:"sample_rows"`

	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool `mapstructure:"trim_space"`

	// BatchSize is the number of rows sent per bulk insert.
	BatchSize int `mapstructure:"batch_size"`
}

// LayoutConfig carries the physical layout hints for silver and gold tables.
type LayoutConfig struct {
	// Apply attaches the hints to the write when the engine supports them.
	Apply bool `mapstructure:"apply"`

	// TransactionPartitionColumn partitions transaction tables.
	TransactionPartitionColumn string `mapstructure:"transaction_partition_column"`

	// CustomerBucketColumn and CustomerBuckets hash-bucket the customer table.
	CustomerBucketColumn string `mapstructure:"customer_bucket_column"`
	CustomerBuckets      int    `mapstructure:"customer_buckets"`

	// MaxPartitions caps list partitions; above it the hint is skipped.
	MaxPartitions int `mapstructure:"max_partitions"`
}

// PipelineConfig controls stage execution.
type PipelineConfig struct {
	// Parallel processes the two datasets of a stage concurrently when the
	// engine allows concurrent writers.
	Parallel bool `mapstructure:"parallel"`

	// RecordRuns writes stage outcomes to the run log table.
	RecordRuns bool `mapstructure:"record_runs"`
}

// ReportConfig controls analytical report output.
type ReportConfig struct {
	// PreviewRows is the number of rows printed per report.
	PreviewRows int `mapstructure:"preview_rows"`

	// Workers bounds how many reports execute concurrently.
	Workers int `mapstructure:"workers"`
}

// ChartConfig controls chart rendering.
type ChartConfig struct {
	Output       string  `mapstructure:"output"`
	WidthInches  float64 `mapstructure:"width_inches"`
	HeightInches float64 `mapstructure:"height_inches"`
}

// ScheduleConfig controls periodic pipeline runs.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// GenerateConfig controls sample CSV generation.
type GenerateConfig struct {
	Customers     int     `mapstructure:"customers"`
	Transactions  int     `mapstructure:"transactions"`
	NullRate      float64 `mapstructure:"null_rate"`
	DuplicateRate float64 `mapstructure:"duplicate_rate"`
	Seed          uint64  `mapstructure:"seed"`
	OutputDir     string  `mapstructure:"output_dir"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine:     EngineDuckDB,
		Connection: "medallion.duckdb",
		LogLevel:   "info",
		Sources: SourcesConfig{
			Customers:    "customer_dataset.csv",
			Transactions: "transactions_dataset.csv",
		},
		Ingest: IngestConfig{
			Delimiter:  ",",
			SampleRows: 0,
			TrimSpace:  true,
			BatchSize:  1000,
		},
		Layout: LayoutConfig{
			Apply:                      true,
			TransactionPartitionColumn: "transaction_date",
			CustomerBucketColumn:       "customer_id",
			CustomerBuckets:            8,
			MaxPartitions:              1000,
		},
		Pipeline: PipelineConfig{
			Parallel:   true,
			RecordRuns: true,
		},
		Report: ReportConfig{
			PreviewRows: 20,
			Workers:     4,
		},
		Chart: ChartConfig{
			Output:       "category_job_totals.png",
			WidthInches:  14,
			HeightInches: 10,
		},
		Schedule: ScheduleConfig{
			Interval: time.Hour,
		},
		Generate: GenerateConfig{
			Customers:     1000,
			Transactions:  10000,
			NullRate:      0.05,
			DuplicateRate: 0.03,
			OutputDir:     ".",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-medallion.yaml
// 3. ~/.config/pgedge-medallion/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-medallion")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-medallion"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the engine configuration is usable.
func (c *Config) Validate() error {
	switch c.Engine {
	case EnginePostgres:
		if c.Connection == "" {
			return fmt.Errorf("connection string is required for engine %q", c.Engine)
		}
	case EngineDuckDB:
	case "":
		return fmt.Errorf("engine is required")
	default:
		return fmt.Errorf("unknown engine %q (want %s or %s)", c.Engine, EnginePostgres, EngineDuckDB)
	}
	return nil
}

// ValidateIngest checks configuration required to load bronze tables.
func (c *Config) ValidateIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Sources.Customers == "" {
		return fmt.Errorf("customers source path is required")
	}
	if c.Sources.Transactions == "" {
		return fmt.Errorf("transactions source path is required")
	}
	if len([]rune(c.Ingest.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Ingest.Delimiter)
	}
	if c.Ingest.SampleRows < 0 {
		return fmt.Errorf("sample_rows must be non-negative")
	}
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	return nil
}

// ValidateClean checks configuration required to build silver tables.
func (c *Config) ValidateClean() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Layout.CustomerBuckets < 1 {
		return fmt.Errorf("customer_buckets must be at least 1")
	}
	if c.Layout.MaxPartitions < 1 {
		return fmt.Errorf("max_partitions must be at least 1")
	}
	return nil
}

// ValidateRun checks configuration required for a full pipeline run.
func (c *Config) ValidateRun() error {
	if err := c.ValidateIngest(); err != nil {
		return err
	}
	return c.ValidateClean()
}

// ValidateReport checks configuration required for report output.
func (c *Config) ValidateReport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Report.PreviewRows < 1 {
		return fmt.Errorf("preview_rows must be at least 1")
	}
	if c.Report.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// ValidateChart checks configuration required to render the chart.
func (c *Config) ValidateChart() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Chart.Output == "" {
		return fmt.Errorf("chart output path is required")
	}
	if c.Chart.WidthInches <= 0 || c.Chart.HeightInches <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}
	return nil
}

// ValidateSchedule checks configuration required for scheduled runs.
func (c *Config) ValidateSchedule() error {
	if err := c.ValidateRun(); err != nil {
		return err
	}
	if c.Schedule.Interval < time.Second {
		return fmt.Errorf("schedule interval must be at least 1s")
	}
	return nil
}

// ValidateGenerate checks configuration required for sample data generation.
func (c *Config) ValidateGenerate() error {
	g := c.Generate
	if g.Customers < 1 {
		return fmt.Errorf("customers must be at least 1")
	}
	if g.Transactions < 0 {
		return fmt.Errorf("transactions must be non-negative")
	}
	if g.NullRate < 0 || g.NullRate >= 1 {
		return fmt.Errorf("null_rate must be in [0, 1)")
	}
	if g.DuplicateRate < 0 || g.DuplicateRate >= 1 {
		return fmt.Errorf("duplicate_rate must be in [0, 1)")
	}
	if g.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}
