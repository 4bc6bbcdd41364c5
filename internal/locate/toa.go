package locate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ben-wes/quatkram/internal/geometry"
	"github.com/ben-wes/quatkram/internal/mathutil"
	"github.com/ben-wes/quatkram/internal/simdops"
)

// ErrSingular indicates that the anchors do not span 3D space (coplanar or
// coincident), so the linear system has no unique solution.
var ErrSingular = errors.New("singular anchor geometry")

// Anchors is the fixed set of reference points, index aligned with the
// distance measurements.
type Anchors = [geometry.NumAnchors]r3.Vec

// Distances holds one value per anchor, in mm.
type Distances = [geometry.NumAnchors]float64

// SolveTOA returns the source position for four absolute distances.
//
// Subtracting the range equation of anchor 0 from that of anchor i gives
// three linear equations
//
//	2(P_i - P_0)·X = d_0² - d_i² - |P_0|² + |P_i|²
//
// which are solved with Cramer's rule. A singular system returns the zero
// vector and ErrSingular.
func SolveTOA(distances Distances, anchors Anchors) (r3.Vec, error) {
	a, b := buildSystem(distances, anchors)

	x, err := mathutil.SolveCramer(a, b, SingularThreshold)
	if err != nil {
		return r3.Vec{}, ErrSingular
	}

	return r3.Vec{X: x[0], Y: x[1], Z: x[2]}, nil
}

// buildSystem assembles A (3x3) and b (3) for SolveTOA.
func buildSystem(distances Distances, anchors Anchors) (*mat.Dense, *mat.VecDense) {
	n := mathutil.SystemSize
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)

	p0 := anchors[0]
	p0Sq := normSq(p0)
	d0Sq := distances[0] * distances[0]

	for i := 1; i < geometry.NumAnchors; i++ {
		diff := r3.Sub(anchors[i], p0)
		a.SetRow(i-1, []float64{
			coordinateScale * diff.X,
			coordinateScale * diff.Y,
			coordinateScale * diff.Z,
		})
		b.SetVec(i-1, d0Sq-distances[i]*distances[i]-p0Sq+normSq(anchors[i]))
	}

	return a, b
}

// Deviation returns Σ | |pos - P_i| - d_i |, the total disagreement in mm
// between the distances implied by pos and the given distances.
func Deviation(pos r3.Vec, anchors Anchors, distances Distances) float64 {
	var dev Distances
	for i, anchor := range anchors {
		dev[i] = math.Abs(r3.Norm(r3.Sub(pos, anchor)) - distances[i])
	}
	return simdops.Sum(dev[:])
}

func normSq(v r3.Vec) float64 {
	return simdops.NormSq([]float64{v.X, v.Y, v.Z})
}
