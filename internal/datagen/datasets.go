package datagen

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/config"
)

// Output file names, matching what the pipeline reads by default.
const (
	CustomersFile    = "customer_dataset.csv"
	TransactionsFile = "transactions_dataset.csv"
)

// Reference data
var (
	jobs = []string{"admin.", "blue-collar", "entrepreneur", "housemaid", "management", "retired",
		"self-employed", "services", "student", "technician", "unemployed", "unknown"}
	maritalStatuses = []string{"married", "single", "divorced"}
	educations      = []string{"primary", "secondary", "tertiary", "unknown"}
	contactTypes    = []string{"cellular", "telephone", "unknown"}
	months          = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	outcomes        = []string{"success", "failure", "other", "unknown"}

	transactionTypes   = []string{catalog.TypePurchase, catalog.TypeRefund}
	transactionWeights = []int{85, 15}
	merchantCategories = []string{"travel", "groceries", "electronics", "entertainment", "restaurants", "health", "clothing"}
	statuses           = []string{"completed", "pending", "failed"}
	statusWeights      = []int{80, 12, 8}
)

// Options controls dataset generation.
type Options struct {
	Customers     int
	Transactions  int
	NullRate      float64
	DuplicateRate float64

	// Seed makes output reproducible; zero picks a random seed.
	Seed      uint64
	OutputDir string

	// Start and End bound transaction dates.
	Start time.Time
	End   time.Time

	ProgressInterval int64
}

// OptionsFromConfig maps the generate section of the configuration.
func OptionsFromConfig(cfg config.GenerateConfig) Options {
	return Options{
		Customers:     cfg.Customers,
		Transactions:  cfg.Transactions,
		NullRate:      cfg.NullRate,
		DuplicateRate: cfg.DuplicateRate,
		Seed:          cfg.Seed,
		OutputDir:     cfg.OutputDir,
		Start:         time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// FileSummary describes one generated file.
type FileSummary struct {
	Path       string
	Rows       int64
	NullKeys   int64
	Duplicates int64
	Bytes      int64
}

// ExpectedClean is the row count the silver layer should keep.
func (s FileSummary) ExpectedClean() int64 {
	return s.Rows - s.NullKeys - s.Duplicates
}

// Summary describes both generated files.
type Summary struct {
	Customers    FileSummary
	Transactions FileSummary
}

// Generate writes the customer and transaction datasets into
// opts.OutputDir. A fraction of rows get an empty customer_id and a
// fraction of keyed rows are followed by an exact copy of themselves.
func Generate(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Customers < 1 {
		return nil, fmt.Errorf("customers must be at least 1")
	}
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("date range end %s is before start %s",
			opts.End.Format(time.DateOnly), opts.Start.Format(time.DateOnly))
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f := NewFaker()
	if opts.Seed != 0 {
		f = NewFakerWithSeed(opts.Seed)
	}

	customers, err := writeDataset(ctx, f, opts, filepath.Join(opts.OutputDir, CustomersFile),
		catalog.CustomerColumns, opts.Customers, func(i int) []string {
			return customerRow(f, int64(i+1))
		})
	if err != nil {
		return nil, err
	}

	transactions, err := writeDataset(ctx, f, opts, filepath.Join(opts.OutputDir, TransactionsFile),
		catalog.TransactionColumns, opts.Transactions, func(i int) []string {
			customerID := int64(f.Int(1, opts.Customers))
			return transactionRow(f, int64(i+1), customerID, opts.Start, opts.End)
		})
	if err != nil {
		return nil, err
	}

	return &Summary{Customers: customers, Transactions: transactions}, nil
}

func writeDataset(ctx context.Context, f *Faker, opts Options, path string, header []string,
	n int, row func(i int) []string) (FileSummary, error) {
	sum := FileSummary{Path: path}
	keyIdx := slices.Index(header, catalog.ColCustomerID)

	file, err := os.Create(path)
	if err != nil {
		return sum, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return sum, fmt.Errorf("failed to write header: %w", err)
	}

	progress := NewProgressReporter(filepath.Base(path), int64(n), opts.ProgressInterval)
	for i := range n {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
		}

		rec := row(i)
		if f.Chance(opts.NullRate) {
			rec[keyIdx] = ""
			sum.NullKeys++
		}
		if err := w.Write(rec); err != nil {
			return sum, fmt.Errorf("failed to write %s: %w", path, err)
		}
		sum.Rows++

		if rec[keyIdx] != "" && f.Chance(opts.DuplicateRate) {
			if err := w.Write(rec); err != nil {
				return sum, fmt.Errorf("failed to write %s: %w", path, err)
			}
			sum.Rows++
			sum.Duplicates++
		}
		progress.Update(1)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return sum, fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		return sum, err
	}
	if info, err := file.Stat(); err == nil {
		sum.Bytes = info.Size()
	}
	progress.Done(sum.Bytes)
	return sum, nil
}

func customerRow(f *Faker, id int64) []string {
	return []string{
		strconv.FormatInt(id, 10),
		strconv.Itoa(f.Int(18, 90)),
		Choose(f, jobs),
		Choose(f, maritalStatuses),
		Choose(f, educations),
		strconv.Itoa(f.Int(-2000, 40000)),
		Choose(f, []string{"yes", "no"}),
		Choose(f, contactTypes),
		Choose(f, months),
		strconv.Itoa(f.Int(-1, 365)),
		Choose(f, outcomes),
	}
}

func transactionRow(f *Faker, id, customerID int64, start, end time.Time) []string {
	return []string{
		strconv.FormatInt(id, 10),
		strconv.FormatInt(customerID, 10),
		strconv.FormatFloat(f.Amount(1, 2500), 'f', 2, 64),
		f.DateRange(start, end).Format(time.DateOnly),
		ChooseWeighted(f, transactionTypes, transactionWeights),
		Choose(f, merchantCategories),
		ChooseWeighted(f, statuses, statusWeights),
	}
}
