package analysis

import "time"

// Section names used in failure reports and renderers.
const (
	SectionDistribution = "distribution"
	SectionCapacity     = "capacity"
	SectionProximity    = "proximity"
	SectionCoverage     = "coverage"
	SectionDispersion   = "dispersion"
)

// Result is the full output of one engine run. Sections that could not
// be computed are nil, with a matching entry in Failures; the run itself
// still succeeds.
type Result struct {
	RunID         string           `json:"run_id"`
	GeneratedAt   time.Time        `json:"generated_at"`
	FacilityCount int              `json:"facility_count"`
	Distribution  *Distribution    `json:"distribution,omitempty"`
	Capacity      *CapacityReport  `json:"capacity,omitempty"`
	Proximity     *ProximityStats  `json:"proximity,omitempty"`
	Coverage      *CoverageStats   `json:"coverage,omitempty"`
	Dispersion    *DispersionStats `json:"dispersion,omitempty"`
	Failures      []SectionFailure `json:"failures,omitempty"`
}

// SectionFailure records one section that could not be computed.
type SectionFailure struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

func (r *Result) fail(section string, err error) {
	r.Failures = append(r.Failures, SectionFailure{Section: section, Reason: err.Error()})
}

// Failed reports whether the named section failed.
func (r *Result) Failed(section string) bool {
	for _, f := range r.Failures {
		if f.Section == section {
			return true
		}
	}
	return false
}

// Distribution summarizes facility-to-district containment. Counts keys
// every district by name, zero counts included; Unassigned tallies
// facilities no district contains; Empty lists districts without a
// single facility, sorted by name.
type Distribution struct {
	Counts     map[string]int `json:"counts"`
	Unassigned int            `json:"unassigned"`
	Empty      []string       `json:"empty,omitempty"`
}

// CapacityReport lists per-district capacity demand. Rows follow
// district input order, first occurrence per name.
type CapacityReport struct {
	Capacity int           `json:"capacity"`
	Rows     []CapacityRow `json:"rows"`
}

// CapacityRow is the capacity picture for one district.
type CapacityRow struct {
	District   string  `json:"district"`
	Population float64 `json:"population"`
	Current    int     `json:"current"`
	Required   int     `json:"required"`
	Additional int     `json:"additional"`
}

// ProximityStats summarizes spacing between facilities that share a
// bounded frontier in the Voronoi sense (see Proximity).
type ProximityStats struct {
	MeanSpacing float64 `json:"mean_spacing"`
	MinSpacing  float64 `json:"min_spacing"`
	MaxSpacing  float64 `json:"max_spacing"`
	RidgeCount  int     `json:"ridge_count"`
}

// CoverageStats reports the service-disk union area. CoveredPct is nil
// when the facility bounding box is degenerate (zero width or height):
// the percentage is undefined there and renders as null / n-a.
type CoverageStats struct {
	Radius      float64  `json:"radius"`
	CoveredArea float64  `json:"covered_area"`
	BoundsArea  float64  `json:"bounds_area"`
	CoveredPct  *float64 `json:"covered_pct"`
}

// DispersionStats reports how spread out the facility network is around
// its mean location.
type DispersionStats struct {
	Center       Coordinate `json:"center"`
	MeanDistance float64    `json:"mean_distance"`
	StdDistance  float64    `json:"std_distance"`
}

// Coordinate is a plain X/Y pair in the analysis CRS.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
