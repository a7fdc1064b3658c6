package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/gridscope/equimap-cli/internal/analysis"
)

// XLSX writes a workbook with a Summary sheet of run-level figures and
// a Districts sheet with the per-district table.
func XLSX(w io.Writer, res *analysis.Result) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "render: add summary sheet")
	}
	writeSummary(summary, res)

	districts, err := f.AddSheet("Districts")
	if err != nil {
		return eris.Wrap(err, "render: add districts sheet")
	}
	writeDistricts(districts, res)

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "render: write workbook")
	}
	return nil
}

func writeSummary(sheet *xlsx.Sheet, res *analysis.Result) {
	kv := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetString(value)
	}

	kv("Run ID", res.RunID)
	kv("Generated", res.GeneratedAt.Format(time.RFC3339))
	kv("Facilities", fmt.Sprintf("%d", res.FacilityCount))

	if d := res.Distribution; d != nil {
		kv("Unassigned facilities", fmt.Sprintf("%d", d.Unassigned))
		kv("Districts without facilities", strings.Join(d.Empty, ", "))
	}
	if c := res.Capacity; c != nil {
		kv("Facility capacity", fmt.Sprintf("%d", c.Capacity))
	}
	if p := res.Proximity; p != nil {
		kv("Neighbor pairs", fmt.Sprintf("%d", p.RidgeCount))
		kv("Mean spacing", fmt.Sprintf("%.2f", p.MeanSpacing))
		kv("Min spacing", fmt.Sprintf("%.2f", p.MinSpacing))
		kv("Max spacing", fmt.Sprintf("%.2f", p.MaxSpacing))
	}
	if c := res.Coverage; c != nil {
		kv("Service radius", fmt.Sprintf("%.2f", c.Radius))
		kv("Covered area", fmt.Sprintf("%.2f", c.CoveredArea))
		kv("Bounds area", fmt.Sprintf("%.2f", c.BoundsArea))
		if c.CoveredPct != nil {
			kv("Covered pct", fmt.Sprintf("%.1f", *c.CoveredPct))
		} else {
			kv("Covered pct", "n/a")
		}
	}
	if d := res.Dispersion; d != nil {
		kv("Mean center", fmt.Sprintf("(%.2f, %.2f)", d.Center.X, d.Center.Y))
		kv("Mean distance", fmt.Sprintf("%.2f", d.MeanDistance))
		kv("Std distance", fmt.Sprintf("%.2f", d.StdDistance))
	}
	for _, fl := range res.Failures {
		kv("Failed: "+fl.Section, fl.Reason)
	}
}

// writeDistricts fills the per-district table. The capacity rows carry
// the fullest picture; without them the distribution counts still make
// a two-column table.
func writeDistricts(sheet *xlsx.Sheet, res *analysis.Result) {
	if c := res.Capacity; c != nil {
		header := sheet.AddRow()
		for _, h := range []string{"District", "Population", "Current", "Required", "Additional"} {
			header.AddCell().SetString(h)
		}
		for _, r := range c.Rows {
			row := sheet.AddRow()
			row.AddCell().SetString(r.District)
			row.AddCell().SetFloat(r.Population)
			row.AddCell().SetInt(r.Current)
			row.AddCell().SetInt(r.Required)
			row.AddCell().SetInt(r.Additional)
		}
		return
	}

	if d := res.Distribution; d != nil {
		header := sheet.AddRow()
		header.AddCell().SetString("District")
		header.AddCell().SetString("Facilities")
		for _, name := range sortedKeys(d.Counts) {
			row := sheet.AddRow()
			row.AddCell().SetString(name)
			row.AddCell().SetInt(d.Counts[name])
		}
	}
}
