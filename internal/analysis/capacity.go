package analysis

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridscope/equimap-cli/internal/feature"
)

// Capacity computes per-district facility demand: the number of
// facilities required to serve the district population at the given
// per-facility capacity, and how many are missing. counts must be the
// per-district facility tallies from Assign, in district order.
//
// required = ceil(population / capacity); additional clamps at zero so a
// surplus never reads as a negative deficit. Empty or missing population
// values count as zero demand; a non-numeric value fails the whole
// section. Districts sharing a name merge: facility counts sum and the
// last population value wins.
func Capacity(dist *feature.Collection, counts []int, capacity int, nameAttr, popAttr string) (*CapacityReport, error) {
	if capacity <= 0 {
		return nil, eris.Wrapf(ErrInvalidParameter, "capacity: per-facility capacity must be positive, got %d", capacity)
	}
	if len(counts) != dist.Len() {
		return nil, eris.Wrapf(ErrInvalidParameter, "capacity: %d counts for %d districts", len(counts), dist.Len())
	}

	rep := &CapacityReport{
		Capacity: capacity,
		Rows:     make([]CapacityRow, 0, dist.Len()),
	}
	index := make(map[string]int, dist.Len())

	for j, f := range dist.Features {
		name := districtName(f, nameAttr, j)
		pop, err := f.Number(popAttr)
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidAttribute, "capacity: district %q: population %q is not numeric", name, f.String(popAttr))
		}

		if k, ok := index[name]; ok {
			zap.L().Warn("duplicate district name, merging",
				zap.String("component", "analysis.capacity"),
				zap.String("district", name),
			)
			rep.Rows[k].Population = pop
			rep.Rows[k].Current += counts[j]
			continue
		}

		index[name] = len(rep.Rows)
		rep.Rows = append(rep.Rows, CapacityRow{
			District:   name,
			Population: pop,
			Current:    counts[j],
		})
	}

	for i := range rep.Rows {
		required := int(math.Ceil(rep.Rows[i].Population / float64(capacity)))
		rep.Rows[i].Required = required
		if add := required - rep.Rows[i].Current; add > 0 {
			rep.Rows[i].Additional = add
		}
	}

	return rep, nil
}
