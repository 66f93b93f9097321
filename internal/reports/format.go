package reports

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// Print writes a report header and up to preview rows as an aligned table.
// A preview below one prints every row.
func Print(w io.Writer, res Result, preview int) error {
	def := res.Definition
	if _, err := fmt.Fprintf(w, "== %s (%s): %s\n", def.Name, def.Layer, def.Description); err != nil {
		return err
	}
	if res.Err != nil {
		_, err := fmt.Fprintf(w, "error: %v\n\n", res.Err)
		return err
	}

	rows := res.Rows
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows.Columns, "\t"))

	n := rows.Len()
	if preview > 0 && n > preview {
		n = preview
	}
	cells := make([]string, len(rows.Columns))
	for _, row := range rows.Rows[:n] {
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "(%d of %d rows, %s)\n\n", n, rows.Len(), res.Duration.Round(time.Millisecond))
	return err
}

// FormatValue renders a normalized engine value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(x)
	}
}
