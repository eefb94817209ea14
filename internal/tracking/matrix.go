package tracking

import (
	"math"

	"github.com/rjdini/jaer-sub001/internal/template"
)

// Matrix is a 3×3 matrix stored row-major as m1..m9.
type Matrix [9]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// IsIdentity reports whether m is exactly the identity.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Det returns the determinant, expanded in the same term order as the
// fold's cofactor inverse.
func (m Matrix) Det() float64 {
	return m[0]*m[4]*m[8] + m[1]*m[5]*m[6] + m[2]*m[3]*m[7] -
		m[0]*m[5]*m[7] - m[1]*m[3]*m[8] - m[2]*m[4]*m[6]
}

// Inverse returns m⁻¹ via the explicit cofactor formula. ok is false when
// |det| < eps or the determinant is not finite.
func (m Matrix) Inverse(eps float64) (inv Matrix, ok bool) {
	det := m.Det()
	if math.IsNaN(det) || math.IsInf(det, 0) || math.Abs(det) < eps || det == 0 {
		return Matrix{}, false
	}
	den := 1 / det
	inv[0] = (m[4]*m[8] - m[5]*m[7]) * den
	inv[1] = (m[2]*m[7] - m[1]*m[8]) * den
	inv[2] = (m[1]*m[5] - m[2]*m[4]) * den
	inv[3] = (m[5]*m[6] - m[3]*m[8]) * den
	inv[4] = (m[0]*m[8] - m[2]*m[6]) * den
	inv[5] = (m[2]*m[3] - m[0]*m[5]) * den
	inv[6] = (m[3]*m[7] - m[4]*m[6]) * den
	inv[7] = (m[1]*m[6] - m[0]*m[7]) * den
	inv[8] = (m[0]*m[4] - m[1]*m[3]) * den
	return inv, true
}

// Mul returns m × o.
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*3+col] = m[row*3]*o[col] + m[row*3+1]*o[3+col] + m[row*3+2]*o[6+col]
		}
	}
	return r
}

// Homogeneous returns M·(x, y, 1) without the projective divide.
func (m Matrix) Homogeneous(p template.Point) (x, y, w float64) {
	x = m[0]*p.X + m[1]*p.Y + m[2]
	y = m[3]*p.X + m[4]*p.Y + m[5]
	w = m[6]*p.X + m[7]*p.Y + m[8]
	return x, y, w
}

// Project maps p as a 2D projective transform: the first two rows give
// the numerator, the third the denominator. ok is false when the result
// is not finite.
func (m Matrix) Project(p template.Point) (template.Point, bool) {
	x, y, w := m.Homogeneous(p)
	q := template.Point{X: x / w, Y: y / w}
	if !finite(q.X) || !finite(q.Y) {
		return template.Point{}, false
	}
	return q, true
}

// ShearIndicator returns m5·m9 − m6·m8 − m1·m9 + m3·m7, the quantity the
// no-shear projection drives toward zero.
func (m Matrix) ShearIndicator() float64 {
	return m[4]*m[8] - m[5]*m[7] - m[0]*m[8] + m[2]*m[6]
}

// Finite reports whether every element is finite.
func (m Matrix) Finite() bool {
	for _, v := range m {
		if !finite(v) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
