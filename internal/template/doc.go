// Package template owns the line-segment template a tracker aligns to
// the event stream.
//
// Responsibilities: segment storage bounded by a maximum count, derived
// geometry (center, gating radius, normalised line equation), built-in
// literal templates and JSON coordinate tables.
// Key types: Point, LineSegment, Template.
//
// Line coefficients are normalised by sqrt(A²+B²+C²), not the textbook
// sqrt(A²+B²). The algebraic error the estimator minimises, and hence
// the distance threshold, is expressed in that scale.
//
// Dependency rule: template depends on nothing but monitoring. The
// estimator, fold step and capture synthesiser all depend on it.
package template
