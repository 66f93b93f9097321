package sqlq

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
)

// ColumnDef is a column name with an engine-specific type.
type ColumnDef struct {
	Name string
	Type string
}

// CreateSchema creates a layer namespace if absent.
func CreateSchema(layer catalog.Layer) string {
	return "CREATE SCHEMA IF NOT EXISTS " + catalog.QuoteIdent(string(layer))
}

// CreateTable renders a column-list CREATE TABLE with an optional trailing
// clause such as PARTITION BY.
func CreateTable(ref catalog.TableRef, cols []ColumnDef, suffix string) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("sqlq: create %s: no columns", ref)
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		if c.Name == "" || c.Type == "" {
			return "", fmt.Errorf("sqlq: create %s: column %d incomplete", ref, i)
		}
		defs[i] = catalog.QuoteIdent(c.Name) + " " + c.Type
	}
	sql := "CREATE TABLE " + ref.Ident() + " (" + strings.Join(defs, ", ") + ")"
	if suffix != "" {
		sql += " " + suffix
	}
	return sql, nil
}

// CreateTableAs materializes a query. The query must not carry arguments:
// PostgreSQL does not bind parameters inside utility statements.
func CreateTableAs(ref catalog.TableRef, q *Query) (string, error) {
	body, err := staticBody(q)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", ref, err)
	}
	return "CREATE TABLE " + ref.Ident() + " AS " + body, nil
}

// InsertSelect appends the rows of a query to a table.
func InsertSelect(ref catalog.TableRef, q *Query) (Statement, error) {
	st, err := q.Build()
	if err != nil {
		return Statement{}, err
	}
	st.SQL = "INSERT INTO " + ref.Ident() + " " + st.SQL
	return st, nil
}

// CreateView defines a view over a query. Like CreateTableAs it takes no
// arguments.
func CreateView(ref catalog.TableRef, q *Query) (string, error) {
	body, err := staticBody(q)
	if err != nil {
		return "", fmt.Errorf("create view %s: %w", ref, err)
	}
	return "CREATE VIEW " + ref.Ident() + " AS " + body, nil
}

func staticBody(q *Query) (string, error) {
	st, err := q.Build()
	if err != nil {
		return "", err
	}
	if len(st.Args) > 0 {
		return "", fmt.Errorf("sqlq: DDL body cannot take %d bound arguments", len(st.Args))
	}
	return st.SQL, nil
}
