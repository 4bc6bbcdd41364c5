// Package mathutil provides the small dense linear algebra used by the
// multilateration solvers.
package mathutil
