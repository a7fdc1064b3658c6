package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gridscope/equimap-cli/internal/analysis"
	"github.com/gridscope/equimap-cli/internal/db"
	"github.com/gridscope/equimap-cli/internal/feature"
	"github.com/gridscope/equimap-cli/internal/render"
	"github.com/gridscope/equimap-cli/internal/scenario"
	"github.com/gridscope/equimap-cli/internal/source"
)

var (
	analyzeFacilities string
	analyzeDistricts  string
	analyzeScenario   string
	analyzeCapacity   int
	analyzeRadius     float64
	analyzeNameAttr   string
	analyzePopAttr    string
	analyzeFormat     string
	analyzeOutput     string
)

// analyzeJob is the fully resolved input for one run: configuration
// defaults, overlaid by a scenario file, overlaid by explicit flags.
type analyzeJob struct {
	Facilities string
	Districts  string
	Capacity   int
	Radius     float64
	NameAttr   string
	PopAttr    string
	Format     string
	Output     string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the coverage and equity analysis for one facility network",
	Long: `Loads a facility dataset and a district dataset, assigns facilities to
districts by containment, and reports distribution, capacity deficits,
facility spacing, service-radius coverage, and dispersion.

Sources may be local files (.shp, .geojson, .json, .gpkg), URLs
(http, https, ftp, zipped archives included), or PostGIS tables
(postgis:schema.table with postgres.dsn configured).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		job, err := resolveJob(cmd)
		if err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "analyze"))

		opts, cleanup, err := sourceOptions(ctx, job.Facilities, job.Districts)
		if err != nil {
			return err
		}
		defer cleanup()

		facilities, districts, err := loadSources(ctx, job, opts)
		if err != nil {
			return err
		}

		districts, err = source.Align(facilities, districts)
		if err != nil {
			return eris.Wrap(err, "analyze: align sources")
		}

		res, err := analysis.Run(ctx, facilities, districts, analysis.Options{
			Capacity: job.Capacity,
			Radius:   job.Radius,
			NameAttr: job.NameAttr,
			PopAttr:  job.PopAttr,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		log.Info("analysis complete",
			zap.String("run_id", res.RunID),
			zap.Int("facilities", res.FacilityCount),
			zap.Int("failed_sections", len(res.Failures)),
		)

		out, closeOut, err := openOutput(job.Output)
		if err != nil {
			return err
		}
		defer closeOut()

		return render.Write(out, res, job.Format)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFacilities, "facilities", "", "facility dataset (path, URL, or postgis:table)")
	analyzeCmd.Flags().StringVar(&analyzeDistricts, "districts", "", "district dataset (path, URL, or postgis:table)")
	analyzeCmd.Flags().StringVar(&analyzeScenario, "scenario", "", "YAML scenario file describing the run")
	analyzeCmd.Flags().IntVar(&analyzeCapacity, "capacity", 0, "residents served per facility (default from config)")
	analyzeCmd.Flags().Float64Var(&analyzeRadius, "radius", 0, "service radius in dataset units (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeNameAttr, "name-attr", "", "district name attribute (default from config)")
	analyzeCmd.Flags().StringVar(&analyzePopAttr, "pop-attr", "", "district population attribute (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "output format: text, json, or xlsx (default inferred from --output)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "output file (default stdout)")
	rootCmd.AddCommand(analyzeCmd)
}

// resolveJob merges configuration defaults, the scenario file, and
// explicit flags, in that order of increasing precedence.
func resolveJob(cmd *cobra.Command) (analyzeJob, error) {
	job := analyzeJob{
		Capacity: cfg.Analysis.Capacity,
		Radius:   cfg.Analysis.Radius,
		NameAttr: cfg.Analysis.NameAttr,
		PopAttr:  cfg.Analysis.PopAttr,
	}

	if analyzeScenario != "" {
		s, err := scenario.Load(analyzeScenario)
		if err != nil {
			return job, err
		}
		job.Facilities = s.Facilities
		job.Districts = s.Districts
		if s.Capacity != 0 {
			job.Capacity = s.Capacity
		}
		if s.Radius != 0 {
			job.Radius = s.Radius
		}
		if s.NameAttr != "" {
			job.NameAttr = s.NameAttr
		}
		if s.PopAttr != "" {
			job.PopAttr = s.PopAttr
		}
		job.Format = s.Format
		job.Output = s.Output
	}

	flags := cmd.Flags()
	if flags.Changed("facilities") {
		job.Facilities = analyzeFacilities
	}
	if flags.Changed("districts") {
		job.Districts = analyzeDistricts
	}
	if flags.Changed("capacity") {
		job.Capacity = analyzeCapacity
	}
	if flags.Changed("radius") {
		job.Radius = analyzeRadius
	}
	if flags.Changed("name-attr") {
		job.NameAttr = analyzeNameAttr
	}
	if flags.Changed("pop-attr") {
		job.PopAttr = analyzePopAttr
	}
	if flags.Changed("format") {
		job.Format = analyzeFormat
	}
	if flags.Changed("output") {
		job.Output = analyzeOutput
	}

	if job.Facilities == "" {
		return job, eris.New("analyze: --facilities or a scenario file is required")
	}
	if job.Districts == "" {
		return job, eris.New("analyze: --districts or a scenario file is required")
	}

	job.Format = inferFormat(job.Format, job.Output)
	return job, nil
}

// inferFormat falls back on the output extension when no format was
// asked for.
func inferFormat(format, output string) string {
	if format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".json":
		return render.FormatJSON
	case ".xlsx":
		return render.FormatXLSX
	default:
		return render.FormatText
	}
}

// sourceOptions builds the loader options, connecting a database pool
// only when one of the specs asks for PostGIS. The returned cleanup
// closes the pool.
func sourceOptions(ctx context.Context, specs ...string) (source.Options, func(), error) {
	opts := source.Options{
		CacheDir:       cfg.Sources.CacheDir,
		Encoding:       cfg.Sources.Encoding,
		GeometryColumn: cfg.Postgres.GeometryColumn,
		Fetcher:        newFetcher(),
	}
	cleanup := func() {}

	needsPool := false
	for _, spec := range specs {
		if source.IsPostGIS(spec) {
			needsPool = true
		}
	}
	if needsPool {
		if cfg.Postgres.DSN == "" {
			return opts, cleanup, eris.New("postgis source given but postgres.dsn is not configured")
		}
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return opts, cleanup, err
		}
		opts.Pool = pool
		cleanup = pool.Close
	}

	return opts, cleanup, nil
}

func newFetcher() *source.Fetcher {
	return source.NewFetcher(source.FetchOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RateLimit:  rate.Limit(cfg.Fetch.RateLimit),
	})
}

// loadSources fetches both datasets concurrently.
func loadSources(ctx context.Context, job analyzeJob, opts source.Options) (*feature.Collection, *feature.Collection, error) {
	var facilities, districts *feature.Collection

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := source.Load(gCtx, job.Facilities, opts)
		if err != nil {
			return eris.Wrapf(err, "analyze: load facilities %s", job.Facilities)
		}
		facilities = c
		return nil
	})
	g.Go(func() error {
		c, err := source.Load(gCtx, job.Districts, opts)
		if err != nil {
			return eris.Wrapf(err, "analyze: load districts %s", job.Districts)
		}
		districts = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return facilities, districts, nil
}

// openOutput returns stdout or a created file plus its closer.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "analyze: create output %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}
