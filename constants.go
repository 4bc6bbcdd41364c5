package tetrapos

import (
	"github.com/ben-wes/quatkram/internal/geometry"
	"github.com/ben-wes/quatkram/internal/locate"
)

// Array constants
const (
	// NumMics is the number of microphones, and of values per measurement.
	NumMics = geometry.NumAnchors

	// DefaultEdgeLength is the edge length used by DefaultConfig (mm).
	DefaultEdgeLength = 1000.0
)

// Range search defaults (mm)
const (
	DefaultSearchStart     = locate.DefaultSearchStart
	DefaultSearchStep      = locate.DefaultSearchStep
	DefaultSearchCeiling   = locate.DefaultSearchCeiling
	DefaultSearchTolerance = locate.DefaultSearchTolerance
)

// Refinement defaults
const (
	defaultMaxBisections     = locate.DefaultMaxBisections
	defaultBracketResolution = locate.DefaultBracketResolution
	defaultPolishEvaluations = locate.DefaultPolishEvaluations
)

// SingularThreshold is the determinant magnitude below which the linear
// system is treated as singular.
const SingularThreshold = locate.SingularThreshold
