// Package analysis implements the facility coverage and equity engine:
// containment counts, capacity deficits, neighbor spacing, covered-area
// and dispersion statistics over in-memory feature collections. The
// engine is synchronous and touches no I/O; hosts load collections and
// render the result.
package analysis

import "github.com/rotisserie/eris"

// Sentinel errors for the engine. Callers test with eris.Is; every error
// returned by an estimator wraps exactly one of these.
var (
	// ErrInvalidParameter marks a non-positive capacity or radius, or a
	// structurally unusable call (nil collections).
	ErrInvalidParameter = eris.New("analysis: invalid parameter")

	// ErrInvalidAttribute marks an attribute value that exists but cannot
	// be coerced, such as a non-numeric population figure.
	ErrInvalidAttribute = eris.New("analysis: invalid attribute value")

	// ErrInsufficientData marks inputs too small or too degenerate for an
	// estimator, such as fewer than four distinct facilities for spacing.
	ErrInsufficientData = eris.New("analysis: insufficient data")
)
