// Package geometry derives the microphone coordinates of a regular
// tetrahedral array from its edge length.
//
// The array lies with three microphones in the z=0 plane, centred on the
// origin, and the fourth on the +z axis:
//
//	0: front       (0, a/√3, 0)
//	1: left back   (-a/2, -a/(2√3), 0)
//	2: right back  (a/2, -a/(2√3), 0)
//	3: top         (0, 0, a·√(2/3))
//
// All coordinates are in millimetres.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NumAnchors is the number of microphones in the array.
const NumAnchors = 4

// ErrInvalidEdge is returned for a non-positive or non-finite edge length.
var ErrInvalidEdge = errors.New("edge length must be positive")

// ErrUnknownLayout is returned for a Layout value outside the defined set.
var ErrUnknownLayout = errors.New("unknown array layout")

const (
	volumeDivisor  = 6.0 // |det[P1-P0, P2-P0, P3-P0]| / 6
	backHalfFactor = 2.0
)

// Layout selects the formula that maps the edge length to coordinates.
type Layout int

const (
	// LayoutRegular is the regular tetrahedron: all six microphone pairs are
	// one edge apart.
	LayoutRegular Layout = iota

	// LayoutLegacy places the front microphone at (0, a/√6, 0), the back pair
	// at (∓a/2, -a/(2√6), 0) and the top at (0, 0, a·√(3/8)). Only the back
	// pair is one edge apart. It exists for arrays whose coordinates were
	// configured with these values.
	LayoutLegacy
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutRegular:
		return "regular"
	case LayoutLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// layoutFactors holds, per unit edge, the front y, back y and top z.
type layoutFactors struct {
	front, back, top float64
}

var layouts = map[Layout]layoutFactors{
	LayoutRegular: {
		front: 1 / math.Sqrt(3),
		back:  -1 / (backHalfFactor * math.Sqrt(3)),
		top:   math.Sqrt(2.0 / 3.0),
	},
	LayoutLegacy: {
		front: 1 / math.Sqrt(6),
		back:  -1 / (backHalfFactor * math.Sqrt(6)),
		top:   math.Sqrt(3.0 / 8.0),
	},
}

// Tetrahedron is an immutable anchor set for a given edge length.
type Tetrahedron struct {
	edge    float64
	layout  Layout
	anchors [NumAnchors]r3.Vec
}

// NewTetrahedron computes the regular-layout anchor positions for edge
// length edge.
func NewTetrahedron(edge float64) (*Tetrahedron, error) {
	return New(edge, LayoutRegular)
}

// New computes the anchor positions for edge length edge in the given layout.
func New(edge float64, layout Layout) (*Tetrahedron, error) {
	if edge <= 0 || math.IsNaN(edge) || math.IsInf(edge, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEdge, edge)
	}

	f, ok := layouts[layout]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownLayout, layout)
	}

	return &Tetrahedron{
		edge:   edge,
		layout: layout,
		anchors: [NumAnchors]r3.Vec{
			{X: 0, Y: edge * f.front, Z: 0},
			{X: -edge / backHalfFactor, Y: edge * f.back, Z: 0},
			{X: edge / backHalfFactor, Y: edge * f.back, Z: 0},
			{X: 0, Y: 0, Z: edge * f.top},
		},
	}, nil
}

// Layout returns the layout the anchors were computed with.
func (t *Tetrahedron) Layout() Layout {
	return t.layout
}

// Edge returns the edge length in mm.
func (t *Tetrahedron) Edge() float64 {
	return t.edge
}

// Anchors returns a copy of the four anchor positions.
func (t *Tetrahedron) Anchors() [NumAnchors]r3.Vec {
	return t.anchors
}

// Anchor returns anchor i. It panics if i is out of range.
func (t *Tetrahedron) Anchor(i int) r3.Vec {
	return t.anchors[i]
}

// Volume returns the signed volume spanned by the anchors. It is zero
// exactly when the anchors are coplanar.
func (t *Tetrahedron) Volume() float64 {
	return Volume(t.anchors)
}

// Distances returns the Euclidean distance from p to each anchor.
func (t *Tetrahedron) Distances(p r3.Vec) [NumAnchors]float64 {
	return Distances(t.anchors, p)
}

// Volume returns the signed volume of the tetrahedron with the given
// vertices.
func Volume(anchors [NumAnchors]r3.Vec) float64 {
	e1 := r3.Sub(anchors[1], anchors[0])
	e2 := r3.Sub(anchors[2], anchors[0])
	e3 := r3.Sub(anchors[3], anchors[0])
	return r3.Dot(e1, r3.Cross(e2, e3)) / volumeDivisor
}

// Distances returns the Euclidean distance from p to each of the anchors.
func Distances(anchors [NumAnchors]r3.Vec, p r3.Vec) [NumAnchors]float64 {
	var d [NumAnchors]float64
	for i, a := range anchors {
		d[i] = r3.Norm(r3.Sub(p, a))
	}
	return d
}
