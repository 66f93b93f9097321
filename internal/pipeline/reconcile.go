package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/ingest"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
	"github.com/pgEdge/pgedge-medallion/internal/store"
)

// ErrReconciliation is returned by strict reconciliation on any mismatch.
var ErrReconciliation = errors.New("layer counts do not reconcile")

// LayerCount is the row count of one table.
type LayerCount struct {
	Layer   catalog.Layer
	Dataset catalog.Dataset
	Table   catalog.TableRef
	Rows    int64
}

// Check is one comparison between layer counts.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Reconciliation holds layer counts and the checks made on them.
type Reconciliation struct {
	Counts []LayerCount
	Checks []Check
}

// OK reports whether every check passed.
func (r *Reconciliation) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Err returns ErrReconciliation wrapped with the failing checks, or nil.
func (r *Reconciliation) Err() error {
	var failed []string
	for _, c := range r.Checks {
		if !c.OK {
			failed = append(failed, c.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrReconciliation, failed)
}

// Count returns the recorded count for a table.
func (r *Reconciliation) Count(ref catalog.TableRef) (int64, bool) {
	for _, c := range r.Counts {
		if c.Table == ref {
			return c.Rows, true
		}
	}
	return 0, false
}

// Print writes the count table and check results.
func (r *Reconciliation) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tDATASET\tTABLE\tROWS")
	for _, c := range r.Counts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.Layer, c.Dataset, c.Table, c.Rows)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CHECK\tRESULT\tDETAIL")
	for _, c := range r.Checks {
		result := "ok"
		if !c.OK {
			result = "MISMATCH"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, result, c.Detail)
	}
	return tw.Flush()
}

// Reconcile compares the layer counts, using this run's ingest profiles
// when bronze ran in the same pipeline.
func (p *Pipeline) Reconcile(ctx context.Context) (*Reconciliation, error) {
	p.mu.Lock()
	profiles := make(map[catalog.Dataset]ingest.Profile, len(p.profiles))
	for d, prof := range p.profiles {
		profiles[d] = prof
	}
	p.mu.Unlock()

	return Reconcile(ctx, p.store, profiles)
}

// Reconcile counts bronze, silver and gold rows and checks that
//
//	silver <= bronze for each dataset
//	gold fact <= silver transactions
//	silver == bronze - null keys - duplicates, when a profile is known
//
// Mismatches are logged as warnings; nothing is corrected.
func Reconcile(ctx context.Context, st *store.Store, profiles map[catalog.Dataset]ingest.Profile) (*Reconciliation, error) {
	rec := &Reconciliation{}
	count := func(layer catalog.Layer, d catalog.Dataset, ref catalog.TableRef) (int64, error) {
		n, err := st.Count(ctx, ref)
		if err != nil {
			return 0, err
		}
		rec.Counts = append(rec.Counts, LayerCount{Layer: layer, Dataset: d, Table: ref, Rows: n})
		return n, nil
	}

	silverCounts := make(map[catalog.Dataset]int64, len(catalog.Datasets))
	for _, d := range catalog.Datasets {
		bronze, err := count(catalog.Bronze, d, d.BronzeTable())
		if err != nil {
			return nil, err
		}
		silver, err := count(catalog.Silver, d, d.SilverTable())
		if err != nil {
			return nil, err
		}
		silverCounts[d] = silver

		rec.Checks = append(rec.Checks, Check{
			Name:   fmt.Sprintf("%s silver <= bronze", d),
			OK:     silver <= bronze,
			Detail: fmt.Sprintf("%d <= %d", silver, bronze),
		})

		if prof, ok := profiles[d]; ok {
			want := prof.ExpectedClean()
			rec.Checks = append(rec.Checks, Check{
				Name:   fmt.Sprintf("%s silver == expected", d),
				OK:     silver == want,
				Detail: fmt.Sprintf("%d == %d - %d null keys - %d duplicates", silver, prof.Rows, prof.NullKeys, prof.Duplicates),
			})
		}
	}

	fact, err := count(catalog.Gold, catalog.Transactions, catalog.FactTransactions)
	if err != nil {
		return nil, err
	}
	rec.Checks = append(rec.Checks, Check{
		Name:   "gold fact <= silver transactions",
		OK:     fact <= silverCounts[catalog.Transactions],
		Detail: fmt.Sprintf("%d <= %d", fact, silverCounts[catalog.Transactions]),
	})

	for _, c := range rec.Checks {
		if !c.OK {
			logging.Warn().Str("check", c.Name).Str("detail", c.Detail).Msg("Reconciliation mismatch")
		}
	}
	return rec, nil
}
