// Package render formats analysis results as text reports, JSON, or
// XLSX workbooks.
package render

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/gridscope/equimap-cli/internal/analysis"
)

// Formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Write renders res to w in the named format. An empty format means
// text.
func Write(w io.Writer, res *analysis.Result, format string) error {
	switch format {
	case "", FormatText:
		return Text(w, res)
	case FormatJSON:
		return JSON(w, res)
	case FormatXLSX:
		return XLSX(w, res)
	default:
		return eris.Errorf("render: unknown format %q", format)
	}
}

// JSON writes res as indented JSON.
func JSON(w io.Writer, res *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return eris.Wrap(err, "render: encode json")
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
