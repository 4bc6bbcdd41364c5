// Package simdops exposes the SIMD-accelerated float64 reductions used by
// the solvers. Operations delegate to github.com/tphakala/simd, which falls
// back to pure Go when no vector unit is available.
package simdops

import (
	"github.com/tphakala/simd/cpu"
	"github.com/tphakala/simd/f64"
)

// Ops groups the reductions so that callers can hold a single value and
// tests can substitute implementations.
type Ops struct {
	// Dot computes Σ a[i]*b[i]. a and b must have equal length.
	Dot func(a, b []float64) float64

	// Sum returns the sum of all elements.
	Sum func(a []float64) float64
}

var ops64 = Ops{
	Dot: f64.DotProductUnsafe,
	Sum: f64.Sum,
}

// Float64Ops returns the float64 operations.
func Float64Ops() *Ops {
	return &ops64
}

// Sum returns the sum of all elements of a.
func Sum(a []float64) float64 {
	return ops64.Sum(a)
}

// NormSq returns Σ a[i]².
func NormSq(a []float64) float64 {
	return ops64.Dot(a, a)
}

// Info describes the vector instruction set in use.
func Info() string {
	return cpu.Info()
}
