package sqlq

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Col qualifies a column with a relation alias.
func Col(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

// Cols qualifies every column with the same alias.
func Cols(alias string, columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = Col(alias, c)
	}
	return out
}

// As names an expression in the projection.
func As(expr, name string) string {
	return expr + " AS " + name
}

// Sum, Count, Max and Avg wrap aggregate functions.
func Sum(expr string) string   { return "SUM(" + expr + ")" }
func Count(expr string) string { return "COUNT(" + expr + ")" }
func Max(expr string) string   { return "MAX(" + expr + ")" }
func Avg(expr string) string   { return "AVG(" + expr + ")" }

// CountAll is COUNT(*).
const CountAll = "COUNT(*)"

// Rank is the standard rank-with-gaps window function.
const Rank = "RANK()"

// Double casts to double precision, which both engines accept.
func Double(expr string) string {
	return Cast(expr, "DOUBLE PRECISION")
}

// Cast wraps expr in CAST(... AS typ).
func Cast(expr, typ string) string {
	return "CAST(" + expr + " AS " + typ + ")"
}

// Desc marks an ordering expression as descending.
func Desc(expr string) string {
	return expr + " DESC"
}

// Window describes an OVER clause.
type Window struct {
	PartitionBy []string
	OrderBy     []string
}

// Over applies a window to a function or aggregate.
func Over(expr string, w Window) string {
	var parts []string
	if len(w.PartitionBy) > 0 {
		parts = append(parts, "PARTITION BY "+strings.Join(w.PartitionBy, ", "))
	}
	if len(w.OrderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(w.OrderBy, ", "))
	}
	return expr + " OVER (" + strings.Join(parts, " ") + ")"
}

// CaseWhen renders a two-branch CASE expression.
func CaseWhen(cond, then, otherwise string) string {
	return "CASE WHEN " + cond + " THEN " + then + " ELSE " + otherwise + " END"
}

// Part extracts an integer date part (YEAR, MONTH, WEEK, ISOYEAR).
func Part(field, expr string) string {
	return Cast("EXTRACT("+field+" FROM "+expr+")", "INTEGER")
}

// Eq, Gt and IsNotNull build simple predicates with one placeholder.
func Eq(column string) string        { return column + " = ?" }
func Gt(column string) string        { return column + " > ?" }
func IsNotNull(column string) string { return column + " IS NOT NULL" }

// Quote renders s as a string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// NullsLast orders NULLs after every value, which the engines disagree on
// by default for descending order.
func NullsLast(expr string) string {
	return expr + " NULLS LAST"
}

// Literal renders a Go value as an SQL literal. Used where the engine cannot
// take a bound parameter, such as partition bounds in DDL.
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return Quote(x), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("sqlq: cannot render %v as a literal", x)
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return "DATE '" + x.Format("2006-01-02") + "'", nil
		}
		return "TIMESTAMP '" + x.Format("2006-01-02 15:04:05.999999") + "'", nil
	default:
		return "", fmt.Errorf("sqlq: unsupported literal type %T", v)
	}
}
