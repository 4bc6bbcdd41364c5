package locate

// Linear solve constants
const (
	// SingularThreshold is the |det(A)| below which the TOA system is
	// treated as singular.
	SingularThreshold = 1e-4

	// coordinateScale is the factor 2 in 2(P_i - P_0)·X = ...
	coordinateScale = 2.0
)

// Range search defaults, all in mm.
const (
	DefaultSearchStart     = 100.0
	DefaultSearchStep      = 10.0
	DefaultSearchCeiling   = 10000.0
	DefaultSearchTolerance = 1.0
)

// Bracket refinement defaults
const (
	// DefaultMaxBisections bounds the halvings of one sign-change bracket.
	// 64 halvings take a 10 mm bracket far below float64 resolution.
	DefaultMaxBisections = 64

	// DefaultBracketResolution stops bisection once the bracket is this narrow (mm).
	DefaultBracketResolution = 1e-9

	// DefaultPolishEvaluations is the Nelder-Mead evaluation budget used
	// when the scan finds no bracket. Zero disables the polish.
	DefaultPolishEvaluations = 200
)

// Upper bounds enforced by SearchParams.Validate so that every search
// terminates within a predictable number of solves.
const (
	MaxGridSamplesLimit       = 1_000_000
	MaxBisectionsLimit        = 1024
	MaxPolishEvaluationsLimit = 100_000
)

// Nelder-Mead convergence settings for the polish step.
const (
	// outsidePenalty is added per mm outside [Start, Ceiling].
	outsidePenalty = 1e3

	polishAbsoluteTolerance = 1e-10
	polishConvergeIters     = 50
)
