package locate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ben-wes/quatkram/internal/geometry"
)

var (
	// ErrSearchExhausted indicates that no hypothesised reference range in
	// the search interval produced a self-consistent position.
	ErrSearchExhausted = errors.New("range search exhausted")

	// ErrInvalidParams indicates unusable search parameters.
	ErrInvalidParams = errors.New("invalid search parameters")
)

// Strategy selects how the range search turns grid samples into an
// accepted candidate.
type Strategy int

const (
	// StrategyBisect brackets sign changes of the range consistency between
	// grid samples and bisects them, falling back to a Nelder-Mead polish of
	// the best grid sample.
	StrategyBisect Strategy = iota

	// StrategyScan accepts the first grid sample whose deviation is below
	// the tolerance. Results are quantised to the step size and sources
	// between grid samples may not be found at all.
	StrategyScan
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyBisect:
		return "bisect"
	case StrategyScan:
		return "scan"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// SearchParams configures SolveTDOA. Distances are in mm.
type SearchParams struct {
	// Start is the first hypothesised distance to anchor 0.
	Start float64

	// Step is the grid spacing of the scan.
	Step float64

	// Ceiling bounds the scan: samples are taken while r < Ceiling.
	Ceiling float64

	// Tolerance is the largest total deviation accepted.
	Tolerance float64

	Strategy Strategy

	// MaxBisections bounds the halvings per bracket (StrategyBisect).
	MaxBisections int

	// BracketResolution ends bisection once the bracket is narrower (StrategyBisect).
	BracketResolution float64

	// PolishEvaluations is the optimizer budget after an unsuccessful scan
	// (StrategyBisect). Zero disables the polish.
	PolishEvaluations int
}

// DefaultSearchParams returns the default bisecting search.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Start:             DefaultSearchStart,
		Step:              DefaultSearchStep,
		Ceiling:           DefaultSearchCeiling,
		Tolerance:         DefaultSearchTolerance,
		Strategy:          StrategyBisect,
		MaxBisections:     DefaultMaxBisections,
		BracketResolution: DefaultBracketResolution,
		PolishEvaluations: DefaultPolishEvaluations,
	}
}

// Validate checks the search parameters.
func (p SearchParams) Validate() error {
	if p.Start < 0 || math.IsNaN(p.Start) {
		return fmt.Errorf("%w: start must be non-negative", ErrInvalidParams)
	}
	if p.Step <= 0 || math.IsNaN(p.Step) || math.IsInf(p.Step, 0) {
		return fmt.Errorf("%w: step must be positive", ErrInvalidParams)
	}
	if !(p.Ceiling > p.Start) || math.IsInf(p.Ceiling, 0) {
		return fmt.Errorf("%w: ceiling must be finite and greater than start", ErrInvalidParams)
	}
	if p.Tolerance <= 0 || math.IsNaN(p.Tolerance) {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidParams)
	}
	if p.Start+p.Step == p.Start {
		return fmt.Errorf("%w: step %g does not advance start %g", ErrInvalidParams, p.Step, p.Start)
	}
	if n := math.Ceil((p.Ceiling - p.Start) / p.Step); n > MaxGridSamplesLimit {
		return fmt.Errorf("%w: %g grid samples exceed the limit of %d", ErrInvalidParams, n, MaxGridSamplesLimit)
	}

	switch p.Strategy {
	case StrategyScan:
	case StrategyBisect:
		if p.MaxBisections < 0 || p.MaxBisections > MaxBisectionsLimit {
			return fmt.Errorf("%w: max bisections must be in [0, %d]", ErrInvalidParams, MaxBisectionsLimit)
		}
		if p.BracketResolution <= 0 || math.IsNaN(p.BracketResolution) {
			return fmt.Errorf("%w: bracket resolution must be positive", ErrInvalidParams)
		}
		if p.PolishEvaluations < 0 || p.PolishEvaluations > MaxPolishEvaluationsLimit {
			return fmt.Errorf("%w: polish evaluations must be in [0, %d]", ErrInvalidParams, MaxPolishEvaluationsLimit)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %v", ErrInvalidParams, p.Strategy)
	}

	return nil
}

// MaxGridSamples returns the number of grid samples the scan takes.
// Only meaningful for parameters that pass Validate.
func (p SearchParams) MaxGridSamples() int {
	return int(math.Ceil((p.Ceiling - p.Start) / p.Step))
}

// gridPoint returns the i-th hypothesised range.
func (p SearchParams) gridPoint(i int) float64 {
	return p.Start + float64(i)*p.Step
}

// inRange reports whether r lies in [Start, Ceiling).
func (p SearchParams) inRange(r float64) bool {
	return r >= p.Start && r < p.Ceiling
}

// Solution is the outcome of a range search.
type Solution struct {
	// Position is the accepted candidate, or the last candidate when the
	// search was exhausted.
	Position r3.Vec

	// Range is the hypothesised distance to anchor 0 for Position.
	Range float64

	// Deviation is the total disagreement between Position's implied
	// distances and the reconstructed distances (mm).
	Deviation float64

	// Iterations counts TOA solves, including optimizer evaluations.
	Iterations int
}

// SolveTDOA locates a source from four distances of which only the
// differences d[i] - d[0] are meaningful.
//
// The missing absolute scale is recovered by scanning a hypothesised range
// r to anchor 0, solving the TOA system for (r, r+Δ1, r+Δ2, r+Δ3) and
// keeping the candidate whose implied distances agree with that
// hypothesis. When two consistent positions exist the one with the smaller
// range is returned.
//
// A singular anchor set fails immediately with ErrSingular. When the search
// finds nothing within tolerance, the last candidate is returned together
// with ErrSearchExhausted.
func SolveTDOA(distances Distances, anchors Anchors, params SearchParams) (Solution, error) {
	if err := params.Validate(); err != nil {
		return Solution{}, err
	}

	s := newSearch(distances, anchors)

	if params.Strategy == StrategyScan {
		return s.scan(params)
	}
	return s.bisect(params)
}

// candidate is one TOA solve at hypothesised range r.
type candidate struct {
	r         float64
	pos       r3.Vec
	g         float64 // |pos - P_0| - r
	deviation float64
}

// search holds the per-call state of a range search.
type search struct {
	tdoa       [geometry.NumAnchors - 1]float64
	anchors    Anchors
	iterations int
}

func newSearch(distances Distances, anchors Anchors) *search {
	s := &search{anchors: anchors}
	for i := range s.tdoa {
		s.tdoa[i] = distances[i+1] - distances[0]
	}
	return s
}

// distancesAt reconstructs absolute distances for reference range r.
func (s *search) distancesAt(r float64) Distances {
	d := Distances{r}
	for i, delta := range s.tdoa {
		d[i+1] = r + delta
	}
	return d
}

// evaluate solves at range r without touching the iteration count, so it is
// safe to call from the optimizer.
func (s *search) evaluate(r float64) (candidate, error) {
	d := s.distancesAt(r)

	pos, err := SolveTOA(d, s.anchors)
	if err != nil {
		return candidate{}, err
	}

	return candidate{
		r:         r,
		pos:       pos,
		g:         r3.Norm(r3.Sub(pos, s.anchors[0])) - r,
		deviation: Deviation(pos, s.anchors, d),
	}, nil
}

func (s *search) step(r float64) (candidate, error) {
	s.iterations++
	return s.evaluate(r)
}

func (s *search) solution(c candidate) Solution {
	return Solution{
		Position:   c.pos,
		Range:      c.r,
		Deviation:  c.deviation,
		Iterations: s.iterations,
	}
}

// scan is the fixed-step search: first grid sample under tolerance wins.
func (s *search) scan(p SearchParams) (Solution, error) {
	var last candidate

	for i := range p.MaxGridSamples() {
		c, err := s.step(p.gridPoint(i))
		if err != nil {
			return s.solution(candidate{}), err
		}
		last = c

		if c.deviation < p.Tolerance {
			return s.solution(c), nil
		}
	}

	return s.solution(last), ErrSearchExhausted
}

// bisect scans the grid for sign changes of g and refines each bracket.
func (s *search) bisect(p SearchParams) (Solution, error) {
	var prev, last candidate
	havePrev := false
	best := candidate{deviation: math.Inf(1)}

	for i := range p.MaxGridSamples() {
		c, err := s.step(p.gridPoint(i))
		if err != nil {
			return s.solution(candidate{}), err
		}

		if havePrev && signChanged(prev.g, c.g) {
			root, err := s.refineBracket(prev, c, p)
			if err != nil {
				return s.solution(candidate{}), err
			}
			if root.deviation < p.Tolerance {
				return s.solution(root), nil
			}
		}

		if c.deviation < best.deviation {
			best = c
		}
		prev, last, havePrev = c, c, true
	}

	if polished, ok := s.polish(best, p); ok {
		return s.solution(polished), nil
	}

	return s.solution(last), ErrSearchExhausted
}

// refineBracket halves [lo, hi] on the sign of g and returns the endpoint
// with the smaller deviation.
func (s *search) refineBracket(lo, hi candidate, p SearchParams) (candidate, error) {
	for range p.MaxBisections {
		if hi.r-lo.r < p.BracketResolution {
			break
		}

		mid, err := s.step(lo.r + (hi.r-lo.r)/2)
		if err != nil {
			return candidate{}, err
		}

		if signChanged(lo.g, mid.g) {
			hi = mid
		} else {
			lo = mid
		}
	}

	if lo.deviation < hi.deviation {
		return lo, nil
	}
	return hi, nil
}

// polish minimises the deviation over r in [Start, Ceiling) with
// Nelder-Mead, starting from the best grid sample. It covers tangential
// solutions where g touches zero without changing sign. Ranges outside the
// search interval are never accepted.
func (s *search) polish(start candidate, p SearchParams) (candidate, bool) {
	if p.PolishEvaluations == 0 || math.IsInf(start.deviation, 1) {
		return candidate{}, false
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			r, outside := clampRange(x[0], p)
			c, err := s.evaluate(r)
			if err != nil {
				return math.Inf(1)
			}
			return c.deviation + outsidePenalty*outside
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: p.PolishEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   polishAbsoluteTolerance,
			Iterations: polishConvergeIters,
		},
	}

	result, _ := optimize.Minimize(problem, []float64{start.r}, settings, &optimize.NelderMead{SimplexSize: p.Step})
	if result == nil {
		return candidate{}, false
	}
	s.iterations += result.Stats.FuncEvaluations

	if !p.inRange(result.X[0]) {
		return candidate{}, false
	}

	c, err := s.step(result.X[0])
	if err != nil || c.deviation >= p.Tolerance {
		return candidate{}, false
	}
	return c, true
}

// clampRange moves r into [Start, Ceiling] and returns how far it had to
// move. The objective stays finite and continuous outside the interval.
func clampRange(r float64, p SearchParams) (float64, float64) {
	switch {
	case r < p.Start:
		return p.Start, p.Start - r
	case r > p.Ceiling:
		return p.Ceiling, r - p.Ceiling
	default:
		return r, 0
	}
}

// signChanged reports whether a and b lie on different sides of zero, with
// zero counted as negative.
func signChanged(a, b float64) bool {
	return (a > 0) != (b > 0)
}
