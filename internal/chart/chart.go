// Package chart renders the category-by-job transaction totals as a
// horizontal grouped bar chart.
package chart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/reports"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

// Data is a categories x groups matrix of totals. Missing or NULL cells
// are zero.
type Data struct {
	Categories []string
	Groups     []string
	values     map[string]map[string]float64
}

// Value returns the total for one category and group.
func (d *Data) Value(category, group string) float64 {
	return d.values[category][group]
}

// FromResultSet pivots a long-format result into a Data matrix. Categories
// and groups are sorted; NULL labels become "unknown".
func FromResultSet(rs *engine.ResultSet, categoryCol, groupCol, valueCol string) (*Data, error) {
	ci, gi, vi := rs.Index(categoryCol), rs.Index(groupCol), rs.Index(valueCol)
	for col, idx := range map[string]int{categoryCol: ci, groupCol: gi, valueCol: vi} {
		if idx < 0 {
			return nil, fmt.Errorf("result has no column %q", col)
		}
	}

	d := &Data{values: make(map[string]map[string]float64)}
	groups := make(map[string]bool)
	for _, row := range rs.Rows {
		category, group := label(row[ci]), label(row[gi])
		if d.values[category] == nil {
			d.values[category] = make(map[string]float64)
			d.Categories = append(d.Categories, category)
		}
		if !groups[group] {
			groups[group] = true
			d.Groups = append(d.Groups, group)
		}
		if v, ok := engine.AsFloat64(row[vi]); ok {
			d.values[category][group] += v
		}
	}
	sort.Strings(d.Categories)
	sort.Strings(d.Groups)
	return d, nil
}

func label(v any) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprint(v)
}

// Load runs the category/job totals query and pivots the result.
func Load(ctx context.Context, q engine.Querier) (*Data, error) {
	st, err := reports.CategoryJobTotals().Build()
	if err != nil {
		return nil, err
	}
	rs, err := q.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chart data: %w", err)
	}
	return FromResultSet(rs, catalog.ColMerchantCategory, catalog.ColJob, "total_amount")
}

// Options controls labels and size.
type Options struct {
	Title        string
	XLabel       string
	YLabel       string
	LegendTitle  string
	WidthInches  float64
	HeightInches float64
}

// DefaultOptions returns the labels used for the transaction chart.
func DefaultOptions() Options {
	return Options{
		Title:        "Total Transactions by Merchant Category and Job Type",
		XLabel:       "Total Transaction Amount",
		YLabel:       "Merchant Category",
		LegendTitle:  "Job Type",
		WidthInches:  14,
		HeightInches: 10,
	}
}

// Render builds the plot: one horizontal bar series per group, offset so
// the groups sit side by side within each category.
func Render(d *Data, opts Options) (*plot.Plot, error) {
	if len(d.Categories) == 0 || len(d.Groups) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.X.Min = 0

	slot := vg.Length(opts.HeightInches) * vg.Inch * 0.7 / vg.Length(len(d.Categories))
	width := slot / vg.Length(len(d.Groups))
	center := float64(len(d.Groups)-1) / 2

	p.Legend.Top = true
	p.Legend.Add(opts.LegendTitle)
	for i, group := range d.Groups {
		values := make(plotter.Values, len(d.Categories))
		for j, category := range d.Categories {
			values[j] = d.Value(category, group)
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, fmt.Errorf("failed to build bars for %s: %w", group, err)
		}
		bars.Horizontal = true
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-center) * width

		p.Add(bars)
		p.Legend.Add(group, bars)
	}
	p.NominalY(d.Categories...)
	return p, nil
}

// Save renders d and writes it to path. The file format follows the
// extension (png, svg, pdf).
func Save(d *Data, opts Options, path string) error {
	p, err := Render(d, opts)
	if err != nil {
		return err
	}
	w, h := vg.Length(opts.WidthInches)*vg.Inch, vg.Length(opts.HeightInches)*vg.Inch
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}
