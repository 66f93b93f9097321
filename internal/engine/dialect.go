package engine

import (
	"github.com/pgEdge/pgedge-medallion/internal/catalog"
)

// Dialect captures what differs between engines.
type Dialect struct {
	Name string

	// Types maps inferred column types to engine column types.
	Types map[catalog.ColumnType]string

	// Partitioning reports support for declarative LIST and HASH
	// partitioning, which is how layout hints are applied.
	Partitioning bool

	// ConcurrentWrites reports whether independent tables may be written
	// from concurrent transactions.
	ConcurrentWrites bool

	// DropCascade drops dependent views along with a table.
	DropCascade bool
}

// ColumnType returns the engine type for an inferred type, defaulting to
// the text type.
func (d Dialect) ColumnType(t catalog.ColumnType) string {
	if s, ok := d.Types[t]; ok {
		return s
	}
	return d.Types[catalog.TypeText]
}

// DropTable renders DROP TABLE IF EXISTS for ref.
func (d Dialect) DropTable(ref catalog.TableRef) string {
	return d.drop("TABLE", ref)
}

// DropView renders DROP VIEW IF EXISTS for ref.
func (d Dialect) DropView(ref catalog.TableRef) string {
	return d.drop("VIEW", ref)
}

func (d Dialect) drop(kind string, ref catalog.TableRef) string {
	sql := "DROP " + kind + " IF EXISTS " + ref.Ident()
	if d.DropCascade {
		sql += " CASCADE"
	}
	return sql
}

// PostgresDialect describes PostgreSQL.
var PostgresDialect = Dialect{
	Name: "postgres",
	Types: map[catalog.ColumnType]string{
		catalog.TypeInteger:   "BIGINT",
		catalog.TypeReal:      "DOUBLE PRECISION",
		catalog.TypeBoolean:   "BOOLEAN",
		catalog.TypeDate:      "DATE",
		catalog.TypeTimestamp: "TIMESTAMP",
		catalog.TypeText:      "TEXT",
	},
	Partitioning:     true,
	ConcurrentWrites: true,
	DropCascade:      true,
}

// DuckDBDialect describes DuckDB. Concurrent catalog writes from one
// process conflict, so stages write one table at a time.
var DuckDBDialect = Dialect{
	Name: "duckdb",
	Types: map[catalog.ColumnType]string{
		catalog.TypeInteger:   "BIGINT",
		catalog.TypeReal:      "DOUBLE",
		catalog.TypeBoolean:   "BOOLEAN",
		catalog.TypeDate:      "DATE",
		catalog.TypeTimestamp: "TIMESTAMP",
		catalog.TypeText:      "VARCHAR",
	},
}
