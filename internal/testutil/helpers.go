// Package testutil provides reusable assertion helpers for solver tests.
package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

// Default tolerances for various test scenarios, in mm.
const (
	DefaultTolerance  = 1e-9
	PositionTolerance = 1e-2
	SearchTolerance   = 1.0
)

// AssertVecInDelta verifies that two points are within tolerance of each
// other on every axis.
func AssertVecInDelta(t testing.TB, expected, actual r3.Vec, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	ok := assert.InDelta(t, expected.X, actual.X, tolerance, msgAndArgs...)
	ok = assert.InDelta(t, expected.Y, actual.Y, tolerance, msgAndArgs...) && ok
	ok = assert.InDelta(t, expected.Z, actual.Z, tolerance, msgAndArgs...) && ok
	return ok
}

// AssertWithinDistance verifies that actual lies within radius of expected.
func AssertWithinDistance(t testing.TB, expected, actual r3.Vec, radius float64, msgAndArgs ...any) bool {
	t.Helper()
	d := r3.Norm(r3.Sub(expected, actual))
	if d > radius {
		return assert.Fail(t, fmt.Sprintf("distance %g mm between %v and %v exceeds %g mm",
			d, expected, actual, radius), msgAndArgs...)
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t testing.TB, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, fmt.Sprintf("s[%d] is NaN", i), msgAndArgs...)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, fmt.Sprintf("s[%d] is Inf", i), msgAndArgs...)
		}
	}
	return true
}

// AssertAllInDelta verifies that every element of s is within tolerance
// of expected.
func AssertAllInDelta(t testing.TB, s []float64, expected, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.Abs(v-expected) > tolerance {
			return assert.Fail(t, fmt.Sprintf("s[%d]=%f differs from %f by more than %g",
				i, v, expected, tolerance), msgAndArgs...)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t testing.TB, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	if relError > tolerance {
		return assert.Fail(t, fmt.Sprintf("relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
			relError, tolerance, expected, actual), msgAndArgs...)
	}
	return true
}
