package tetrapos

import (
	"fmt"

	"github.com/ben-wes/quatkram/internal/geometry"
)

// NewDefault creates a solver for the default 1000 mm array.
func NewDefault() (*Solver, error) {
	return New(DefaultConfig())
}

// NewWithEdge creates a solver with default settings and the given edge
// length in mm.
func NewWithEdge(edge float64) (*Solver, error) {
	config := DefaultConfig()
	config.EdgeLength = edge
	return New(config)
}

// LocateAbsolute is a one-shot absolute solve on a regular array.
//
// For repeated solves, create a Solver once and reuse it.
func LocateAbsolute(edge float64, distances ...float64) (Result, error) {
	s, err := NewWithEdge(edge)
	if err != nil {
		return Result{}, err
	}
	return s.SolveAbsolute(distances...)
}

// LocateRelative is a one-shot relative solve on a regular array using the
// default range search.
func LocateRelative(edge float64, distances ...float64) (Result, error) {
	s, err := NewWithEdge(edge)
	if err != nil {
		return Result{}, err
	}
	return s.SolveRelative(distances...)
}

// SimulateDistances returns the exact distances from p to the microphones
// of a regular array with the given edge length. Useful for building
// measurements with a known answer.
func SimulateDistances(edge float64, p Position) ([NumMics]float64, error) {
	geom, err := geometry.NewTetrahedron(edge)
	if err != nil {
		return [NumMics]float64{}, fmt.Errorf("%w: got %v", ErrInvalidEdge, edge)
	}
	return geom.Distances(p.Vec()), nil
}

// Simulate returns the exact distances from p to the solver's current
// microphones.
func (s *Solver) Simulate(p Position) [NumMics]float64 {
	return s.geom.Load().Distances(p.Vec())
}
