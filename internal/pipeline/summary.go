package pipeline

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// LayoutSummary describes the layout hint and whether it was applied.
func (r StageResult) LayoutSummary() string {
	if r.Layout.IsZero() {
		return "-"
	}
	if r.LayoutApplied {
		return r.Layout.String() + " (applied)"
	}
	return fmt.Sprintf("%s (%s)", r.Layout, r.LayoutNote)
}

// Print writes one line per table written by the run, followed by the
// reconciliation.
func (s *Summary) Print(w io.Writer) error {
	fmt.Fprintf(w, "Run %s\n\n", s.RunID)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tTABLE\tROWS IN\tROWS OUT\tDROPPED\tLAYOUT")
	for _, b := range s.Bronze {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", StageBronze, b.Table, b.Rows, b.Rows, 0, "-")
	}
	for _, r := range s.Silver {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", StageSilver, r.Table, r.RowsIn, r.RowsOut, r.Dropped(), r.LayoutSummary())
	}
	if f := s.Gold.Fact; f.Table.Name != "" {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", StageGold, f.Table, f.RowsIn, f.RowsOut, f.Dropped(), f.LayoutSummary())
		fmt.Fprintf(tw, "%s\t%s\t\t\t\t%s\n", StageGold, s.Gold.View, "view")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s.Reconciliation != nil {
		fmt.Fprintln(w)
		if err := s.Reconciliation.Print(w); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "\nCompleted in %s\n", s.Duration.Round(time.Millisecond))
	return nil
}
