package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"

	"github.com/gridscope/equimap-cli/internal/feature"
	"github.com/gridscope/equimap-cli/internal/source"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <source>",
	Short: "Summarize a dataset without running the analysis",
	Long:  "Loads a single dataset and prints its feature count, geometry types, attributes, coordinate system, and extent. Useful for checking attribute names before an analyze run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, cleanup, err := sourceOptions(ctx, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		col, err := source.Load(ctx, args[0], opts)
		if err != nil {
			return eris.Wrapf(err, "inspect %s", args[0])
		}

		printSummary(os.Stdout, col)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// printSummary writes the dataset overview.
func printSummary(out io.Writer, col *feature.Collection) {
	fmt.Fprintf(out, "Dataset: %s\n", col.Name)
	fmt.Fprintf(out, "Features: %d\n", col.Len())

	if col.SR != nil {
		fmt.Fprintf(out, "CRS: %s\n", col.SR.Name)
	} else {
		fmt.Fprintln(out, "CRS: unknown (analysis will assume it matches the other dataset)")
	}

	types := make(map[string]int)
	attrs := make(map[string]struct{})
	bounds := geom.NewBounds(geom.XY)
	for _, f := range col.Features {
		types[geometryTypeName(f.Geom)]++
		if f.Geom != nil {
			bounds.Extend(f.Geom)
		}
		for key := range f.Attrs {
			attrs[key] = struct{}{}
		}
	}

	if len(types) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "GEOMETRY\tCOUNT")
		_, _ = fmt.Fprintln(w, "--------\t-----")
		for _, name := range sortedTypeNames(types) {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", name, types[name])
		}
		_ = w.Flush()
	}

	if !bounds.IsEmpty() {
		fmt.Fprintf(out, "Extent: (%.4f, %.4f) to (%.4f, %.4f)\n",
			bounds.Min(0), bounds.Min(1), bounds.Max(0), bounds.Max(1))
	}

	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for key := range attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "Attributes:")
		for _, key := range keys {
			fmt.Fprintf(out, "  %s\n", key)
		}
	}
}

func geometryTypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "point"
	case *geom.MultiPoint:
		return "multipoint"
	case *geom.LineString:
		return "linestring"
	case *geom.MultiLineString:
		return "multilinestring"
	case *geom.Polygon:
		return "polygon"
	case *geom.MultiPolygon:
		return "multipolygon"
	case nil:
		return "none"
	default:
		return fmt.Sprintf("%T", g)
	}
}

func sortedTypeNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
