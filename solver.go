package tetrapos

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ben-wes/quatkram/internal/geometry"
	"github.com/ben-wes/quatkram/internal/locate"
	"github.com/ben-wes/quatkram/internal/simdops"
)

// Solver locates a sound source relative to a tetrahedral microphone array.
//
// The anchor geometry is an immutable snapshot replaced atomically by
// Configure, so a Solver is safe for concurrent use: every solve works on
// the snapshot it loaded when it started.
type Solver struct {
	layout   geometry.Layout
	search   locate.SearchParams
	parallel bool
	logger   *slog.Logger

	debug atomic.Bool
	geom  atomic.Pointer[geometry.Tetrahedron]
}

// newSolver creates a solver from a validated configuration.
func newSolver(config *Config) (*Solver, error) {
	s := &Solver{
		layout:   geometryLayout(config.Layout),
		search:   buildSearchParams(config.Search.withDefaults()),
		parallel: config.EnableParallel,
		logger:   config.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.debug.Store(config.Debug)

	if s.debug.Load() {
		s.logger.Info("tetrapos: solver created",
			"strategy", s.search.Strategy.String(),
			"polish_evaluations", s.search.PolishEvaluations,
			"parallel", s.parallel,
			"simd", simdops.Info(),
		)
	}

	if err := s.Configure(config.EdgeLength); err != nil {
		return nil, err
	}

	return s, nil
}

// Configure recomputes the microphone positions for a new edge length.
// A non-positive edge returns ErrInvalidEdge and keeps the current geometry.
func (s *Solver) Configure(edge float64) error {
	geom, err := geometry.New(edge, s.layout)
	if err != nil {
		return fmt.Errorf("%w: got %v", ErrInvalidEdge, edge)
	}

	s.geom.Store(geom)

	if s.debug.Load() {
		anchors := geom.Anchors()
		attrs := []any{"edge_mm", edge, "layout", geom.Layout().String()}
		for i, a := range anchors {
			attrs = append(attrs, fmt.Sprintf("mic%d", i), positionFrom(a).String())
		}
		s.logger.Info("tetrapos: geometry configured", attrs...)
	}

	return nil
}

// SetDebug toggles debug logging of intermediate quantities. Debug output
// is logged at Info level so that it shows with default handlers.
func (s *Solver) SetDebug(on bool) {
	s.debug.Store(on)
}

// Debug reports whether debug logging is enabled.
func (s *Solver) Debug() bool {
	return s.debug.Load()
}

// EdgeLength returns the current edge length in mm.
func (s *Solver) EdgeLength() float64 {
	return s.geom.Load().Edge()
}

// Anchors returns the current microphone positions.
func (s *Solver) Anchors() [NumMics]Position {
	var out [NumMics]Position
	for i, a := range s.geom.Load().Anchors() {
		out[i] = positionFrom(a)
	}
	return out
}

// SolveAbsolute locates the source from four absolute distances in mm
// (time of arrival).
func (s *Solver) SolveAbsolute(distances ...float64) (Result, error) {
	return s.Solve(ModeAbsolute, distances)
}

// SolveRelative locates the source from four distances of which only the
// differences to the first are used (time difference of arrival).
func (s *Solver) SolveRelative(distances ...float64) (Result, error) {
	return s.Solve(ModeRelative, distances)
}

// Solve locates the source from four measurements interpreted per mode.
//
// Input errors (ErrArity, ErrInvalidMeasurement) return a zero Result.
// ErrSingularGeometry and ErrSearchExhausted return a Result whose Status
// says which failure occurred.
func (s *Solver) Solve(mode Mode, distances []float64) (Result, error) {
	d, err := toDistances(mode, distances)
	if err != nil {
		return Result{}, err
	}

	return s.solve(mode, d, s.geom.Load())
}

// SolveBatch solves every measurement set against one geometry snapshot.
// All sets are checked before any is solved; an input error fails the
// whole batch. Singular or exhausted solves are reported per Result.
func (s *Solver) SolveBatch(mode Mode, sets [][]float64) ([]Result, error) {
	if mode != ModeAbsolute && mode != ModeRelative {
		return nil, fmt.Errorf("%w: unknown mode %v", ErrInvalidConfig, mode)
	}

	inputs := make([]locate.Distances, len(sets))
	for i, set := range sets {
		d, err := toDistances(mode, set)
		if err != nil {
			return nil, fmt.Errorf("set %d: %w", i, err)
		}
		inputs[i] = d
	}

	geom := s.geom.Load()
	results := make([]Result, len(inputs))

	// Sequential processing (default or when parallel disabled)
	if !s.parallel || len(inputs) <= 1 {
		for i := range inputs {
			results[i], _ = s.solve(mode, inputs[i], geom)
		}
		return results, nil
	}

	workers := min(runtime.GOMAXPROCS(0), len(inputs))
	next := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i], _ = s.solve(mode, inputs[i], geom)
			}
		}()
	}

	for i := range inputs {
		next <- i
	}
	close(next)
	wg.Wait()

	return results, nil
}

// solve dispatches one validated measurement set.
func (s *Solver) solve(mode Mode, d locate.Distances, geom *geometry.Tetrahedron) (Result, error) {
	switch mode {
	case ModeAbsolute:
		return s.solveAbsolute(d, geom)
	case ModeRelative:
		return s.solveRelative(d, geom)
	default:
		return Result{}, fmt.Errorf("%w: unknown mode %v", ErrInvalidConfig, mode)
	}
}

func (s *Solver) solveAbsolute(d locate.Distances, geom *geometry.Tetrahedron) (Result, error) {
	anchors := geom.Anchors()
	res := Result{Mode: ModeAbsolute, Range: d[0], Iterations: 1}

	pos, err := locate.SolveTOA(d, anchors)
	if err != nil {
		res.Status = StatusSingular
		s.logSolve(res, d)
		return res, fmt.Errorf("%w: edge %g mm", ErrSingularGeometry, geom.Edge())
	}

	res.Position = positionFrom(pos)
	res.Residual = locate.Deviation(pos, anchors, d)
	s.logSolve(res, d)

	return res, nil
}

func (s *Solver) solveRelative(d locate.Distances, geom *geometry.Tetrahedron) (Result, error) {
	sol, err := locate.SolveTDOA(d, geom.Anchors(), s.search)
	res := Result{
		Mode:       ModeRelative,
		Position:   positionFrom(sol.Position),
		Range:      sol.Range,
		Residual:   sol.Deviation,
		Iterations: sol.Iterations,
	}

	switch {
	case errors.Is(err, locate.ErrSingular):
		res.Status = StatusSingular
		res.Position = Position{}
		s.logSolve(res, d)
		return res, fmt.Errorf("%w: edge %g mm", ErrSingularGeometry, geom.Edge())

	case errors.Is(err, locate.ErrSearchExhausted):
		res.Status = StatusSearchExhausted
		s.logSolve(res, d)
		return res, fmt.Errorf("%w: no range in [%g, %g) mm within %g mm after %d solves",
			ErrSearchExhausted, s.search.Start, s.search.Ceiling, s.search.Tolerance, sol.Iterations)

	case err != nil:
		return Result{}, err
	}

	s.logSolve(res, d)
	return res, nil
}

// logSolve emits the measurement and outcome when debug is on.
func (s *Solver) logSolve(res Result, d locate.Distances) {
	if !s.debug.Load() {
		return
	}

	attrs := []any{
		"mode", res.Mode.String(),
		"distances_mm", d[:],
	}
	if res.Mode == ModeRelative {
		attrs = append(attrs, "differences_mm", []float64{d[1] - d[0], d[2] - d[0], d[3] - d[0]})
	}
	attrs = append(attrs,
		"status", res.Status.String(),
		"position_mm", res.Position.String(),
		"range_mm", res.Range,
		"residual_mm", res.Residual,
		"iterations", res.Iterations,
	)

	s.logger.Info("tetrapos: solved", attrs...)
}

// toDistances checks arity and values of one measurement set.
func toDistances(mode Mode, distances []float64) (locate.Distances, error) {
	var d locate.Distances

	if len(distances) != NumMics {
		return d, fmt.Errorf("%w: got %d", ErrArity, len(distances))
	}

	for i, v := range distances {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return d, fmt.Errorf("%w: distance %d is %v", ErrInvalidMeasurement, i, v)
		}
		if mode == ModeAbsolute && v < 0 {
			return d, fmt.Errorf("%w: distance %d is negative (%v)", ErrInvalidMeasurement, i, v)
		}
		d[i] = v
	}

	return d, nil
}
