//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sqlq builds SELECT and DDL statements from structured parts.
//
// Conditions are written with `?` markers; Build numbers them into $1..$n in
// the order they appear in the rendered text (CTEs first), so one Query can be
// sent to PostgreSQL and DuckDB alike.
package sqlq

import (
	"fmt"
	"strings"
)

// Statement is rendered SQL plus its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

type clause struct {
	expr string
	args []any
}

type cte struct {
	name  string
	query *Query
}

// Query is a SELECT under construction. Methods mutate and return the
// receiver so calls can be chained.
type Query struct {
	ctes     []cte
	distinct bool
	columns  []string
	from     string
	joins    []string
	where    []clause
	groupBy  []string
	having   []clause
	orderBy  []string
	limit    int
}

// Select starts a query projecting the given expressions ("*" when empty).
func Select(columns ...string) *Query {
	return &Query{columns: columns}
}

// With prepends a common table expression.
func (q *Query) With(name string, sub *Query) *Query {
	q.ctes = append(q.ctes, cte{name: name, query: sub})
	return q
}

// Distinct turns the query into SELECT DISTINCT.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// From sets the source relation, optionally aliased.
func (q *Query) From(relation string, alias ...string) *Query {
	q.from = aliased(relation, alias)
	return q
}

// Join adds an INNER JOIN.
func (q *Query) Join(relation, alias, on string) *Query {
	q.joins = append(q.joins, "JOIN "+aliased(relation, []string{alias})+" ON "+on)
	return q
}

// Where adds a condition; multiple conditions are ANDed.
func (q *Query) Where(expr string, args ...any) *Query {
	q.where = append(q.where, clause{expr: expr, args: args})
	return q
}

// GroupBy sets the grouping expressions.
func (q *Query) GroupBy(exprs ...string) *Query {
	q.groupBy = append(q.groupBy, exprs...)
	return q
}

// Having adds a group filter; multiple filters are ANDed.
func (q *Query) Having(expr string, args ...any) *Query {
	q.having = append(q.having, clause{expr: expr, args: args})
	return q
}

// OrderBy sets the ordering expressions.
func (q *Query) OrderBy(exprs ...string) *Query {
	q.orderBy = append(q.orderBy, exprs...)
	return q
}

// Limit caps the number of rows (0 = no limit).
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Build renders the query and numbers its placeholders.
func (q *Query) Build() (Statement, error) {
	r := &renderer{}
	if err := q.render(r); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: r.b.String(), Args: r.args}, nil
}

// String renders the query text, ignoring argument errors. Intended for
// logging and tests.
func (q *Query) String() string {
	st, err := q.Build()
	if err != nil {
		return "<invalid query: " + err.Error() + ">"
	}
	return st.SQL
}

func (q *Query) render(r *renderer) error {
	if q.from == "" {
		return fmt.Errorf("sqlq: query has no FROM relation")
	}

	if len(q.ctes) > 0 {
		r.b.WriteString("WITH ")
		for i, c := range q.ctes {
			if i > 0 {
				r.b.WriteString(", ")
			}
			r.b.WriteString(c.name)
			r.b.WriteString(" AS (")
			if err := c.query.render(r); err != nil {
				return fmt.Errorf("sqlq: cte %s: %w", c.name, err)
			}
			r.b.WriteString(")")
		}
		r.b.WriteString(" ")
	}

	r.b.WriteString("SELECT ")
	if q.distinct {
		r.b.WriteString("DISTINCT ")
	}
	if len(q.columns) == 0 {
		r.b.WriteString("*")
	} else {
		r.b.WriteString(strings.Join(q.columns, ", "))
	}

	r.b.WriteString(" FROM ")
	r.b.WriteString(q.from)
	for _, j := range q.joins {
		r.b.WriteString(" ")
		r.b.WriteString(j)
	}

	if err := r.clauses(" WHERE ", q.where); err != nil {
		return err
	}
	if len(q.groupBy) > 0 {
		r.b.WriteString(" GROUP BY ")
		r.b.WriteString(strings.Join(q.groupBy, ", "))
	}
	if err := r.clauses(" HAVING ", q.having); err != nil {
		return err
	}
	if len(q.orderBy) > 0 {
		r.b.WriteString(" ORDER BY ")
		r.b.WriteString(strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		fmt.Fprintf(&r.b, " LIMIT %d", q.limit)
	}
	return nil
}

type renderer struct {
	b    strings.Builder
	args []any
}

func (r *renderer) clauses(keyword string, cs []clause) error {
	if len(cs) == 0 {
		return nil
	}
	r.b.WriteString(keyword)
	for i, c := range cs {
		if i > 0 {
			r.b.WriteString(" AND ")
		}
		if len(cs) > 1 {
			r.b.WriteString("(")
		}
		if err := r.bind(c); err != nil {
			return err
		}
		if len(cs) > 1 {
			r.b.WriteString(")")
		}
	}
	return nil
}

// bind writes expr, replacing each ? with the next positional placeholder.
func (r *renderer) bind(c clause) error {
	if n := strings.Count(c.expr, "?"); n != len(c.args) {
		return fmt.Errorf("sqlq: %q has %d placeholders but %d args", c.expr, n, len(c.args))
	}
	next := 0
	for _, ch := range c.expr {
		if ch != '?' {
			r.b.WriteRune(ch)
			continue
		}
		r.args = append(r.args, c.args[next])
		next++
		fmt.Fprintf(&r.b, "$%d", len(r.args))
	}
	return nil
}

func aliased(relation string, alias []string) string {
	if len(alias) > 0 && alias[0] != "" {
		return relation + " " + alias[0]
	}
	return relation
}
