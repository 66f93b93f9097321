package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/ingest"
	"github.com/pgEdge/pgedge-medallion/internal/sqlq"
	"github.com/pgEdge/pgedge-medallion/internal/store"
)

// Bronze loads both raw datasets, replacing the bronze tables.
func (p *Pipeline) Bronze(ctx context.Context) ([]ingest.Result, error) {
	results := make([]ingest.Result, len(catalog.Datasets))
	err := p.forEachDataset(ctx, func(ctx context.Context, i int, d catalog.Dataset) error {
		res, err := p.ingest(ctx, d)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bronze stage: %w", err)
	}
	return results, nil
}

func (p *Pipeline) ingest(ctx context.Context, d catalog.Dataset) (ingest.Result, error) {
	ref := d.BronzeTable()
	run := store.StageRun{Stage: StageBronze, Dataset: string(d), StartedAt: time.Now()}

	path, err := p.source(d)
	if err != nil {
		return ingest.Result{}, p.fail(ctx, run, err)
	}

	tbl, err := ingest.ReadFile(ctx, path, p.opts.Ingest)
	if err != nil {
		return ingest.Result{}, p.fail(ctx, run, err)
	}
	if tbl.Coerced > 0 {
		p.log.Warn().
			Str("table", ref.String()).
			Int64("values", tbl.Coerced).
			Msg("Values outside the inferred type loaded as NULL")
	}

	n, err := p.store.LoadTable(ctx, ref, tbl.Columns, tbl.Rows)
	if err != nil {
		return ingest.Result{}, p.fail(ctx, run, err)
	}
	p.setProfile(d, tbl.Profile)

	res := ingest.Result{
		Dataset:    d,
		Table:      ref,
		Columns:    tbl.Columns,
		Rows:       n,
		NullKeys:   tbl.Profile.NullKeys,
		Duplicates: tbl.Profile.Duplicates,
		Coerced:    tbl.Coerced,
	}

	p.log.Info().
		Str("stage", StageBronze).
		Str("table", ref.String()).
		Str("source", path).
		Int64("rows", n).
		Int("columns", len(tbl.Columns)).
		Int64("null_keys", res.NullKeys).
		Int64("duplicates", res.Duplicates).
		Msg("Ingested dataset")

	run.Status = store.RunSucceeded
	run.RowsIn = int64(len(tbl.Rows))
	run.RowsOut = n
	run.Detail = fmt.Sprintf("source=%s null_keys=%d duplicates=%d coerced=%d",
		path, res.NullKeys, res.Duplicates, res.Coerced)
	p.record(ctx, run)

	return res, nil
}

// layoutFor returns the layout hint attached to a dataset's silver table.
func (p *Pipeline) layoutFor(d catalog.Dataset) catalog.Layout {
	if d == catalog.Customers {
		if p.opts.CustomerBucketColumn == "" {
			return catalog.Layout{}
		}
		return catalog.BucketedBy(p.opts.CustomerBucketColumn, p.opts.CustomerBuckets)
	}
	if p.opts.TransactionPartitionColumn == "" {
		return catalog.Layout{}
	}
	return catalog.PartitionedBy(p.opts.TransactionPartitionColumn)
}

// CleanQuery keeps rows with a customer id, then drops exact duplicates.
func CleanQuery(d catalog.Dataset) *sqlq.Query {
	return sqlq.Select().
		Distinct().
		From(d.BronzeTable().Ident()).
		Where(sqlq.IsNotNull(catalog.QuoteIdent(catalog.ColCustomerID)))
}

// Silver cleans both bronze tables into the silver layer.
func (p *Pipeline) Silver(ctx context.Context) ([]StageResult, error) {
	results := make([]StageResult, len(catalog.Datasets))
	err := p.forEachDataset(ctx, func(ctx context.Context, i int, d catalog.Dataset) error {
		res, err := p.clean(ctx, d)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("silver stage: %w", err)
	}
	p.restoreView(ctx)
	return results, nil
}

// restoreView recreates the reporting view when replacing the silver tables
// dropped it through CASCADE. The view reads the existing fact table, which
// stays as the last gold stage built it.
func (p *Pipeline) restoreView(ctx context.Context) {
	if !p.store.Dialect().DropCascade {
		return
	}
	ok, err := p.store.Exists(ctx, catalog.FactTransactions)
	if err == nil && ok {
		err = p.store.CreateView(ctx, catalog.CustomerTransactionsView, ViewQuery())
	}
	if err != nil {
		p.log.Warn().Err(err).
			Str("view", catalog.CustomerTransactionsView.String()).
			Msg("Reporting view not restored; run aggregate to rebuild it")
		return
	}
	if ok {
		p.log.Debug().Str("view", catalog.CustomerTransactionsView.String()).Msg("Restored reporting view")
	}
}

func (p *Pipeline) clean(ctx context.Context, d catalog.Dataset) (StageResult, error) {
	src, dst := d.BronzeTable(), d.SilverTable()
	run := store.StageRun{Stage: StageSilver, Dataset: string(d), StartedAt: time.Now()}

	in, err := p.store.Count(ctx, src)
	if err != nil {
		return StageResult{}, p.fail(ctx, run, err)
	}

	m, err := p.store.Materialize(ctx, dst, CleanQuery(d), p.layoutFor(d))
	if err != nil {
		return StageResult{}, p.fail(ctx, run, err)
	}

	res := StageResult{
		Dataset:       d,
		Table:         dst,
		RowsIn:        in,
		RowsOut:       m.Rows,
		Layout:        m.Layout,
		LayoutApplied: m.LayoutApplied,
		LayoutNote:    m.LayoutNote,
	}

	ev := p.log.Info().
		Str("stage", StageSilver).
		Str("table", dst.String()).
		Int64("rows_in", in).
		Int64("rows", m.Rows).
		Int64("dropped", res.Dropped()).
		Str("layout", m.Layout.String()).
		Bool("layout_applied", m.LayoutApplied)
	if prof, ok := p.profile(d); ok {
		ev = ev.Int64("null_keys", prof.NullKeys).Int64("duplicates", prof.Duplicates)
	}
	ev.Msg("Cleaned dataset")

	run.Status = store.RunSucceeded
	run.RowsIn = in
	run.RowsOut = m.Rows
	run.Detail = layoutDetail(m)
	p.record(ctx, run)

	return res, nil
}

// FactQuery joins silver transactions to their customers.
func FactQuery() *sqlq.Query {
	cols := append(
		sqlq.Cols("t", catalog.TransactionColumns...),
		sqlq.Cols("c", catalog.FactCustomerColumns...)...,
	)
	return sqlq.Select(cols...).
		From(catalog.TransactionsSilver.Ident(), "t").
		Join(catalog.CustomerSilver.Ident(), "c",
			sqlq.Col("t", catalog.ColCustomerID)+" = "+sqlq.Col("c", catalog.ColCustomerID))
}

// ViewQuery is the definition of the customer transactions view.
func ViewQuery() *sqlq.Query {
	return sqlq.Select(
		sqlq.Col("c", catalog.ColCustomerID),
		sqlq.Col("c", catalog.ColAge),
		sqlq.Col("c", catalog.ColJob),
		sqlq.Col("t", catalog.ColBalance),
		sqlq.Col("t", catalog.ColTransactionID),
		sqlq.Col("t", catalog.ColTransactionAmount),
		sqlq.Col("t", catalog.ColTransactionDate),
		sqlq.Col("t", catalog.ColMerchantCategory),
		sqlq.Col("t", catalog.ColTransactionStatus),
	).
		From(catalog.FactTransactions.Ident(), "t").
		Join(catalog.CustomerSilver.Ident(), "c",
			sqlq.Col("t", catalog.ColCustomerID)+" = "+sqlq.Col("c", catalog.ColCustomerID))
}

// Gold builds the fact table and the reporting view.
func (p *Pipeline) Gold(ctx context.Context) (GoldResult, error) {
	run := store.StageRun{Stage: StageGold, Dataset: string(catalog.Transactions), StartedAt: time.Now()}

	in, err := p.store.Count(ctx, catalog.TransactionsSilver)
	if err != nil {
		return GoldResult{}, fmt.Errorf("gold stage: %w", p.fail(ctx, run, err))
	}

	var layout catalog.Layout
	if p.opts.TransactionPartitionColumn != "" {
		layout = catalog.PartitionedBy(p.opts.TransactionPartitionColumn)
	}
	m, err := p.store.Materialize(ctx, catalog.FactTransactions, FactQuery(), layout)
	if err != nil {
		return GoldResult{}, fmt.Errorf("gold stage: %w", p.fail(ctx, run, err))
	}

	if err := p.store.CreateView(ctx, catalog.CustomerTransactionsView, ViewQuery()); err != nil {
		return GoldResult{}, fmt.Errorf("gold stage: %w", p.fail(ctx, run, err))
	}

	res := GoldResult{
		Fact: StageResult{
			Dataset:       catalog.Transactions,
			Table:         catalog.FactTransactions,
			RowsIn:        in,
			RowsOut:       m.Rows,
			Layout:        m.Layout,
			LayoutApplied: m.LayoutApplied,
			LayoutNote:    m.LayoutNote,
		},
		View: catalog.CustomerTransactionsView,
	}

	p.log.Info().
		Str("stage", StageGold).
		Str("table", catalog.FactTransactions.String()).
		Str("view", catalog.CustomerTransactionsView.String()).
		Int64("rows_in", in).
		Int64("rows", m.Rows).
		Msg("Aggregated fact table")

	run.Status = store.RunSucceeded
	run.RowsIn = in
	run.RowsOut = m.Rows
	run.Detail = layoutDetail(m)
	p.record(ctx, run)

	return res, nil
}

func layoutDetail(m store.Materialized) string {
	detail := "layout=" + m.Layout.String()
	if m.LayoutApplied {
		return detail + " applied"
	}
	if m.LayoutNote != "" {
		return detail + " (" + m.LayoutNote + ")"
	}
	return detail
}
