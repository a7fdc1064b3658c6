package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gridscope/equimap-cli/internal/analysis"
)

// Text writes a human-readable report. Sections that failed are left
// out of the body and listed at the end instead.
func Text(out io.Writer, res *analysis.Result) error {
	fmt.Fprintf(out, "Coverage report %s\n", res.RunID)
	fmt.Fprintf(out, "Generated: %s\n", res.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Facilities: %d\n", res.FacilityCount)

	if d := res.Distribution; d != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "DISTRIBUTION")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DISTRICT\tFACILITIES")
		_, _ = fmt.Fprintln(w, "--------\t----------")
		for _, name := range sortedKeys(d.Counts) {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", name, d.Counts[name])
		}
		_ = w.Flush()
		fmt.Fprintf(out, "Unassigned facilities: %d\n", d.Unassigned)
		if len(d.Empty) > 0 {
			fmt.Fprintf(out, "Districts without facilities: %s\n", strings.Join(d.Empty, ", "))
		}
	}

	if c := res.Capacity; c != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "CAPACITY (%d residents per facility)\n", c.Capacity)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DISTRICT\tPOPULATION\tCURRENT\tREQUIRED\tADDITIONAL")
		_, _ = fmt.Fprintln(w, "--------\t----------\t-------\t--------\t----------")
		for _, row := range c.Rows {
			_, _ = fmt.Fprintf(w, "%s\t%.0f\t%d\t%d\t%d\n",
				row.District, row.Population, row.Current, row.Required, row.Additional)
		}
		_ = w.Flush()
	}

	if p := res.Proximity; p != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "PROXIMITY")
		fmt.Fprintf(out, "Neighbor pairs: %d\n", p.RidgeCount)
		fmt.Fprintf(out, "Spacing mean/min/max: %.2f / %.2f / %.2f\n",
			p.MeanSpacing, p.MinSpacing, p.MaxSpacing)
	}

	if c := res.Coverage; c != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "COVERAGE (radius %.2f)\n", c.Radius)
		fmt.Fprintf(out, "Covered area: %.2f\n", c.CoveredArea)
		fmt.Fprintf(out, "Bounds area: %.2f\n", c.BoundsArea)
		if c.CoveredPct != nil {
			fmt.Fprintf(out, "Covered: %.1f%%\n", *c.CoveredPct)
		} else {
			fmt.Fprintln(out, "Covered: n/a (degenerate bounds)")
		}
	}

	if d := res.Dispersion; d != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "DISPERSION")
		fmt.Fprintf(out, "Mean center: (%.2f, %.2f)\n", d.Center.X, d.Center.Y)
		fmt.Fprintf(out, "Distance mean/std: %.2f / %.2f\n", d.MeanDistance, d.StdDistance)
	}

	if len(res.Failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "FAILED SECTIONS")
		for _, f := range res.Failures {
			fmt.Fprintf(out, "%s: %s\n", f.Section, f.Reason)
		}
	}

	return nil
}
