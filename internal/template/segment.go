package template

import "math"

// Point is a 2D position in the template's normalised coordinate system,
// nominally [-1,1]².
type Point struct {
	X float64
	Y float64
}

// LineSegment is one template line. Start and End are authored (or
// synthesised, or written back by a fold); the remaining fields are
// derived by Precompute and are only meaningful after it runs.
type LineSegment struct {
	Start Point
	End   Point

	// Derived geometry
	Center    Point   // (Start+End)/2
	HalfLenSq float64 // |Start-End|²/4, the squared gating radius
	A, B, C   float64 // A·x + B·y + C = 0, scaled by 1/sqrt(A²+B²+C²), see Precompute
}

// NewLineSegment returns a segment with its derived geometry computed.
func NewLineSegment(sx, sy, ex, ey float64) LineSegment {
	seg := LineSegment{Start: Point{X: sx, Y: sy}, End: Point{X: ex, Y: ey}}
	seg.Precompute()
	return seg
}

// Precompute derives Center, HalfLenSq and the normalised line equation
// from the endpoints. A zero-length segment gets zero coefficients.
//
// The coefficients are divided by sqrt(A²+B²+C²), not the textbook
// sqrt(A²+B²). A·x+B·y+C is therefore not a Euclidean distance: for a
// line at distance d from the origin the residual shrinks by
// 1/sqrt(1+d²), so matching and the update step are softer for lines
// far from the centre. Estimator thresholds are tuned against this
// scale; do not switch to the Euclidean form.
func (l *LineSegment) Precompute() {
	s, e := l.Start, l.End
	l.Center = Point{X: (s.X + e.X) / 2, Y: (s.Y + e.Y) / 2}

	dx := s.X - e.X
	dy := s.Y - e.Y
	l.HalfLenSq = (dx*dx + dy*dy) / 4

	a := s.Y - e.Y
	b := e.X - s.X
	c := s.X*e.Y - e.X*s.Y
	n := math.Sqrt(a*a + b*b + c*c)
	if n == 0 {
		l.A, l.B, l.C = 0, 0, 0
		return
	}
	l.A, l.B, l.C = a/n, b/n, c/n
}

// Degenerate reports whether the segment has no usable line equation.
func (l *LineSegment) Degenerate() bool {
	return l.A == 0 && l.B == 0 && l.C == 0
}

// Gates reports whether p lies within the segment's gating radius of its
// center.
func (l *LineSegment) Gates(p Point) bool {
	dx := p.X - l.Center.X
	dy := p.Y - l.Center.Y
	return dx*dx+dy*dy <= l.HalfLenSq
}

// Angle returns the segment direction folded into [0, π).
func (l *LineSegment) Angle() float64 {
	a := math.Atan2(l.End.Y-l.Start.Y, l.End.X-l.Start.X)
	if a < 0 {
		a += math.Pi
	}
	if a >= math.Pi {
		a -= math.Pi
	}
	return a
}

// Length returns the Euclidean length of the segment.
func (l *LineSegment) Length() float64 {
	return math.Hypot(l.End.X-l.Start.X, l.End.Y-l.Start.Y)
}
