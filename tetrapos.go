package tetrapos

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds solver configuration.
type Config struct {
	// EdgeLength is the distance between microphones in mm.
	EdgeLength float64

	// Layout selects the anchor coordinate formula. The zero value is the
	// regular tetrahedron. LayoutLegacy reproduces the coordinates used by
	// the earlier implementation of this array, whose edges are not all
	// equal.
	Layout Layout

	// Search configures the range search used by relative solves.
	Search SearchConfig

	// Debug logs anchor coordinates, reconstructed distances and solved
	// positions.
	Debug bool

	// EnableParallel spreads SolveBatch over GOMAXPROCS workers.
	// Results are identical to sequential processing.
	EnableParallel bool

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// SearchConfig tunes the range search of relative (TDOA) solves.
// Zero-valued fields take the package defaults.
type SearchConfig struct {
	// Strategy selects bisecting refinement or the plain fixed-step scan.
	Strategy SearchStrategy

	// Start is the first hypothesised distance to microphone 0 (mm).
	Start float64

	// Step is the scan grid spacing (mm).
	Step float64

	// Ceiling bounds the scan; samples are taken while r < Ceiling (mm).
	Ceiling float64

	// Tolerance is the largest accepted total deviation across the four
	// microphones (mm).
	Tolerance float64

	// MaxBisections bounds the halvings of each bracket.
	MaxBisections int

	// PolishEvaluations is the optimizer budget used when the scan finds
	// no bracket.
	PolishEvaluations int

	// DisablePolish turns the optimizer fallback off.
	DisablePolish bool
}

// Layout selects how microphone coordinates follow from the edge length.
type Layout int

const (
	// LayoutRegular is the regular tetrahedron, all microphones one edge apart.
	LayoutRegular Layout = iota

	// LayoutLegacy reproduces coordinates with the front microphone at
	// (0, a/√6, 0) and the top at (0, 0, a·√(3/8)), for arrays configured
	// with those values.
	LayoutLegacy
)

// SearchStrategy selects the range search algorithm.
type SearchStrategy int

const (
	// StrategyBisect refines sign changes of the range consistency between
	// grid samples. Accepted positions are exact to floating point.
	StrategyBisect SearchStrategy = iota

	// StrategyScan accepts the first grid sample within tolerance.
	// Positions are quantised to the step and sources between samples can
	// be missed entirely.
	StrategyScan
)

// Mode selects how the four measurements are interpreted.
type Mode int

const (
	// ModeAbsolute treats measurements as distances to each microphone (TOA).
	ModeAbsolute Mode = iota

	// ModeRelative uses only the differences to microphone 0 (TDOA).
	ModeRelative
)

// Status describes the outcome of a solve.
type Status int

const (
	// StatusOK means Position is a valid solution.
	StatusOK Status = iota

	// StatusSingular means the anchors do not determine a position.
	// Position is zero.
	StatusSingular

	// StatusSearchExhausted means no hypothesised range was consistent.
	// Position holds the last candidate and should not be trusted.
	StatusSearchExhausted
)

// Position is a point in array coordinates, in millimetres.
type Position struct {
	X, Y, Z float64
}

// Result is the outcome of a solve.
type Result struct {
	Position Position
	Status   Status
	Mode     Mode

	// Range is the distance to microphone 0 the solution was built on.
	Range float64

	// Residual is the total deviation between Position's implied distances
	// and the (reconstructed) measured distances, in mm.
	Residual float64

	// Iterations counts linear solves.
	Iterations int
}

// OK reports whether Position is a valid solution.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Common errors returned by the solver.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid solver configuration")

	// ErrInvalidEdge indicates a non-positive edge length. The previous
	// geometry is kept.
	ErrInvalidEdge = fmt.Errorf("%w: edge length must be positive", ErrInvalidConfig)

	// ErrArity indicates a measurement set without exactly four values.
	ErrArity = fmt.Errorf("expected exactly %d distances", NumMics)

	// ErrInvalidMeasurement indicates a non-finite value, or a negative
	// absolute distance.
	ErrInvalidMeasurement = errors.New("invalid distance measurement")

	// ErrSingularGeometry indicates that the anchors are (near) coplanar.
	ErrSingularGeometry = errors.New("singular microphone geometry")

	// ErrSearchExhausted indicates that the range search found no
	// consistent position.
	ErrSearchExhausted = errors.New("range search exhausted")
)

// DefaultConfig returns the default configuration: a 1000 mm regular array
// with the bisecting range search.
func DefaultConfig() *Config {
	return &Config{
		EdgeLength: DefaultEdgeLength,
		Layout:     LayoutRegular,
		Search:     DefaultSearchConfig(),
	}
}

// DefaultSearchConfig returns the default range search settings.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Strategy:          StrategyBisect,
		Start:             DefaultSearchStart,
		Step:              DefaultSearchStep,
		Ceiling:           DefaultSearchCeiling,
		Tolerance:         DefaultSearchTolerance,
		MaxBisections:     defaultMaxBisections,
		PolishEvaluations: defaultPolishEvaluations,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !(c.EdgeLength > 0) || math.IsInf(c.EdgeLength, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidEdge, c.EdgeLength)
	}

	if c.Layout != LayoutRegular && c.Layout != LayoutLegacy {
		return fmt.Errorf("%w: unknown layout %v", ErrInvalidConfig, c.Layout)
	}

	return c.Search.Validate()
}

// Validate checks the search settings after defaults are applied.
func (s *SearchConfig) Validate() error {
	if err := buildSearchParams(s.withDefaults()).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Vec converts p to a gonum r3 vector.
func (p Position) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Position) DistanceTo(q Position) float64 {
	return r3.Norm(r3.Sub(p.Vec(), q.Vec()))
}

// String formats p with 0.1 mm resolution.
func (p Position) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", p.X, p.Y, p.Z)
}

func positionFrom(v r3.Vec) Position {
	return Position{X: v.X, Y: v.Y, Z: v.Z}
}

// New creates a solver with the given configuration.
// A nil config uses DefaultConfig.
func New(config *Config) (*Solver, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return newSolver(config)
}
