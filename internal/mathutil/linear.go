package mathutil

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a 3x3 system has a (near) zero determinant.
var ErrSingular = errors.New("mathutil: singular 3x3 system")

// Det3 computes the determinant of a 3x3 matrix by cofactor expansion
// along the first row.
//
// Expansion is used instead of mat.Det (LU) so that exactly singular
// geometries produce an exactly zero determinant.
func Det3(m mat.Matrix) float64 {
	return m.At(0, 0)*(m.At(1, 1)*m.At(2, 2)-m.At(1, 2)*m.At(2, 1)) -
		m.At(0, 1)*(m.At(1, 0)*m.At(2, 2)-m.At(1, 2)*m.At(2, 0)) +
		m.At(0, 2)*(m.At(1, 0)*m.At(2, 1)-m.At(1, 1)*m.At(2, 0))
}

// SolveCramer solves the 3x3 system a·x = b with Cramer's rule.
// a must be 3x3 and b of length 3.
//
// If |det(a)| is below threshold the system is treated as singular: the
// returned vector is all zeros and the error is ErrSingular. The zero
// vector keeps callers that ignore the error on a defined value.
func SolveCramer(a *mat.Dense, b *mat.VecDense, threshold float64) ([SystemSize]float64, error) {
	var x [SystemSize]float64

	det := Det3(a)
	if math.Abs(det) < threshold || math.IsNaN(det) {
		return x, ErrSingular
	}

	col := make([]float64, SystemSize)
	for i := range col {
		col[i] = b.AtVec(i)
	}

	// Column j of a replaced by b; scratch is rebuilt from a per column.
	var scratch mat.Dense
	for j := range SystemSize {
		scratch.CloneFrom(a)
		scratch.SetCol(j, col)
		x[j] = Det3(&scratch) / det
	}

	return x, nil
}
