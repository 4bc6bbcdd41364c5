// Package tetrapos locates a sound source relative to a tetrahedral array of
// four microphones.
//
// The array is a regular tetrahedron with edge length a (mm). Microphone 0
// sits at the front of the base triangle, microphones 1 and 2 at the back
// left and right, and microphone 3 above the base centroid, which is the
// origin of the coordinate system.
//
// # Quick Start
//
// When the distances to all four microphones are known (time of arrival):
//
//	res, err := tetrapos.LocateAbsolute(1000, 763.76, 763.76, 763.76, 316.50)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Position) // (0.0, 0.0, 500.0)
//
// When only the arrival time differences are known (time difference of
// arrival), the absolute offset of the measurements does not matter:
//
//	s, err := tetrapos.New(&tetrapos.Config{EdgeLength: 1000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := s.SolveRelative(0, 0, 0, -447.27)
//
// # Solvers
//
// Absolute solves subtract the sphere equation of microphone 0 from the
// other three, which leaves a 3x3 linear system solved with Cramer's rule.
// A determinant below [SingularThreshold] yields [ErrSingularGeometry].
//
// Relative solves hypothesise the distance r to microphone 0 on a grid from
// [DefaultSearchStart] to [DefaultSearchCeiling] and solve the absolute
// system for every r. [StrategyBisect] (the default) refines every sign
// change of |x(r) - mic0| - r between grid samples and falls back to a
// Nelder-Mead polish of the best sample. [StrategyScan] accepts the first
// grid sample within tolerance. When two positions are consistent with the
// differences, the one with the smaller r is returned. No consistent
// position yields [ErrSearchExhausted] and [StatusSearchExhausted].
//
// # Layouts
//
// [LayoutLegacy] reproduces an older coordinate formula in which the front
// and top microphones are closer than one edge to the others. Use it only to
// process measurements taken with an array built from those coordinates.
//
// # Thread Safety
//
// A [Solver] is safe for concurrent use. [Solver.Configure] swaps an
// immutable geometry snapshot, and every solve works on the snapshot it
// loaded at its start. [Solver.SolveBatch] solves many measurement sets on
// one snapshot and can spread them over GOMAXPROCS workers.
package tetrapos
