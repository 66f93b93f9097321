package store

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
	"github.com/pgEdge/pgedge-medallion/internal/sqlq"
)

const stageSuffix = "__stage"

// createPartitioned writes q into a partitioned ref. The result is staged
// first so the partitioned table can copy its column types. It falls back
// to an unpartitioned table when the partition count exceeds the cap.
func (s *Store) createPartitioned(ctx context.Context, tx engine.Querier, ref catalog.TableRef, q *sqlq.Query, layout catalog.Layout) (bool, string, error) {
	d := s.Dialect()
	stage := ref.WithSuffix(stageSuffix)

	if err := tx.Exec(ctx, d.DropTable(stage)); err != nil {
		return false, "", fmt.Errorf("drop %s: %w", stage, err)
	}
	if err := s.createAs(ctx, tx, stage, q); err != nil {
		return false, "", err
	}

	cols, err := columns(ctx, tx, stage)
	if err != nil {
		return false, "", err
	}

	var partitions []string
	var note string
	if layout.PartitionBy != "" {
		partitions, note, err = s.listPartitions(ctx, tx, ref, stage, layout.PartitionBy)
	} else {
		partitions = hashPartitions(ref, layout.Buckets)
	}
	if err != nil {
		return false, "", err
	}

	if partitions == nil {
		rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", stage.Ident(), catalog.QuoteIdent(ref.Name))
		if err := tx.Exec(ctx, rename); err != nil {
			return false, "", fmt.Errorf("rename %s: %w", stage, err)
		}
		logging.Warn().
			Str("table", ref.String()).
			Str("layout", layout.String()).
			Str("reason", note).
			Msg("Layout hint not applied")
		return false, note, nil
	}

	var clause string
	if layout.PartitionBy != "" {
		clause = "PARTITION BY LIST (" + catalog.QuoteIdent(layout.PartitionBy) + ")"
	} else {
		clause = "PARTITION BY HASH (" + catalog.QuoteIdent(layout.BucketBy) + ")"
	}
	create, err := sqlq.CreateTable(ref, cols, clause)
	if err != nil {
		return false, "", err
	}
	if err := tx.Exec(ctx, create); err != nil {
		return false, "", fmt.Errorf("create %s: %w", ref, err)
	}
	for _, p := range partitions {
		if err := tx.Exec(ctx, p); err != nil {
			return false, "", fmt.Errorf("create partition of %s: %w", ref, err)
		}
	}

	insert, err := sqlq.InsertSelect(ref, sqlq.Select().From(stage.Ident()))
	if err != nil {
		return false, "", err
	}
	if err := tx.Exec(ctx, insert.SQL, insert.Args...); err != nil {
		return false, "", fmt.Errorf("fill %s: %w", ref, err)
	}
	if err := tx.Exec(ctx, d.DropTable(stage)); err != nil {
		return false, "", fmt.Errorf("drop %s: %w", stage, err)
	}

	logging.Debug().
		Str("table", ref.String()).
		Int("partitions", len(partitions)).
		Msg("Applied layout hint")

	return true, "", nil
}

// listPartitions returns one LIST partition per distinct non-null value plus
// a default partition, or nil when there are too many values.
func (s *Store) listPartitions(ctx context.Context, tx engine.Querier, ref, stage catalog.TableRef, column string) ([]string, string, error) {
	col := catalog.QuoteIdent(column)
	distinct := sqlq.Select(col).Distinct().From(stage.Ident()).Where(sqlq.IsNotNull(col)).OrderBy(col)
	st, err := distinct.Build()
	if err != nil {
		return nil, "", err
	}
	rs, err := tx.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, "", fmt.Errorf("partition values of %s: %w", ref, err)
	}
	if rs.Len() > s.opts.MaxPartitions {
		return nil, fmt.Sprintf("%d distinct %s values exceed max_partitions %d", rs.Len(), column, s.opts.MaxPartitions), nil
	}

	stmts := make([]string, 0, rs.Len()+1)
	for i, row := range rs.Rows {
		lit, err := sqlq.Literal(row[0])
		if err != nil {
			return nil, "", fmt.Errorf("partition bound for %s: %w", ref, err)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s PARTITION OF %s FOR VALUES IN (%s)",
			ref.WithSuffix(fmt.Sprintf("_p%04d", i)).Ident(), ref.Ident(), lit))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s PARTITION OF %s DEFAULT",
		ref.WithSuffix("_default").Ident(), ref.Ident()))
	return stmts, "", nil
}

func hashPartitions(ref catalog.TableRef, buckets int) []string {
	stmts := make([]string, buckets)
	for i := range buckets {
		stmts[i] = fmt.Sprintf("CREATE TABLE %s PARTITION OF %s FOR VALUES WITH (MODULUS %d, REMAINDER %d)",
			ref.WithSuffix(fmt.Sprintf("_b%02d", i)).Ident(), ref.Ident(), buckets, i)
	}
	return stmts
}
