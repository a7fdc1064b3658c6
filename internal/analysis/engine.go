package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridscope/equimap-cli/internal/feature"
)

// Defaults applied by Run when the corresponding option is zero.
const (
	DefaultCapacity = 2000
	DefaultRadius   = 10.0
	DefaultNameAttr = "DIST_NAME"
	DefaultPopAttr  = "TOTAL_POP"
)

// Options configures one engine run.
type Options struct {
	Capacity int     // population served per facility
	Radius   float64 // service radius, in facility CRS units
	NameAttr string  // district name attribute
	PopAttr  string  // district population attribute
}

func (o *Options) applyDefaults() {
	if o.Capacity == 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Radius == 0 {
		o.Radius = DefaultRadius
	}
	if o.NameAttr == "" {
		o.NameAttr = DefaultNameAttr
	}
	if o.PopAttr == "" {
		o.PopAttr = DefaultPopAttr
	}
}

// Run executes every analysis section over the two collections and
// returns the combined result. Both collections must already share a
// CRS; Run never reprojects.
//
// Sections run sequentially in a fixed order. A section that cannot be
// computed records a failure in the result and analysis continues with
// the rest; only structural problems (nil collections, unplaceable
// facility geometry) or context cancellation abort the run.
func Run(ctx context.Context, fac, dist *feature.Collection, opts Options) (*Result, error) {
	if fac == nil || dist == nil {
		return nil, eris.Wrap(ErrInvalidParameter, "analysis: facility and district collections are required")
	}
	opts.applyDefaults()

	log := zap.L().With(zap.String("component", "analysis.engine"))

	res := &Result{
		RunID:         uuid.New().String(),
		GeneratedAt:   time.Now().UTC(),
		FacilityCount: fac.Len(),
	}

	pts, err := fac.Points()
	if err != nil {
		return nil, eris.Wrap(err, "analysis: facility representative points")
	}

	asn := assignPoints(pts, dist)
	res.Distribution = buildDistribution(asn, dist, opts.NameAttr)

	sections := []struct {
		name string
		run  func() error
	}{
		{SectionCapacity, func() error {
			rep, err := Capacity(dist, asn.Counts, opts.Capacity, opts.NameAttr, opts.PopAttr)
			res.Capacity = rep
			return err
		}},
		{SectionProximity, func() error {
			stats, err := Proximity(pts)
			res.Proximity = stats
			return err
		}},
		{SectionCoverage, func() error {
			stats, err := Coverage(pts, opts.Radius)
			res.Coverage = stats
			return err
		}},
		{SectionDispersion, func() error {
			stats, err := Dispersion(pts)
			res.Dispersion = stats
			return err
		}},
	}

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "analysis: run cancelled")
		}
		if err := s.run(); err != nil {
			log.Warn("section failed", zap.String("section", s.name), zap.Error(err))
			res.fail(s.name, err)
		}
	}

	log.Info("analysis complete",
		zap.String("run_id", res.RunID),
		zap.Int("facilities", res.FacilityCount),
		zap.Int("districts", dist.Len()),
		zap.Int("unassigned", res.Distribution.Unassigned),
		zap.Int("failed_sections", len(res.Failures)),
	)
	return res, nil
}
