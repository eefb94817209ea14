package template

import (
	"github.com/rjdini/jaer-sub001/internal/monitoring"
)

// DefaultMaxSegments bounds a template when no explicit limit is given.
const DefaultMaxSegments = 500

// Template is an ordered, bounded collection of line segments.
//
// A Template is not safe for concurrent use; the owning session
// serialises access together with the transform it is paired with.
type Template struct {
	Name string

	segments    []LineSegment
	maxSegments int
	stale       bool
}

// New creates an empty template holding at most maxSegments lines.
// A non-positive limit selects DefaultMaxSegments.
func New(name string, maxSegments int) *Template {
	if maxSegments <= 0 {
		maxSegments = DefaultMaxSegments
	}
	return &Template{Name: name, maxSegments: maxSegments}
}

// FromSegments builds a template from segs and precomputes it.
func FromSegments(name string, maxSegments int, segs []LineSegment) *Template {
	t := New(name, maxSegments)
	t.SetSegments(segs)
	t.Precompute()
	return t
}

// SetSegments replaces every segment, keeping at most the template's
// maximum count, and marks derived geometry stale. It returns the number
// of segments kept.
func (t *Template) SetSegments(segs []LineSegment) int {
	n := len(segs)
	if n > t.maxSegments {
		monitoring.Warnf("template %q: %d segments exceed limit %d, truncating", t.Name, n, t.maxSegments)
		n = t.maxSegments
	}
	t.segments = make([]LineSegment, n)
	copy(t.segments, segs[:n])
	t.stale = true
	return n
}

// SetEndpoints moves segment i and marks derived geometry stale.
func (t *Template) SetEndpoints(i int, start, end Point) {
	t.segments[i].Start = start
	t.segments[i].End = end
	t.stale = true
}

// Precompute recomputes derived geometry for every segment.
func (t *Template) Precompute() {
	for i := range t.segments {
		t.segments[i].Precompute()
	}
	t.stale = false
}

// Stale reports whether endpoints changed since the last Precompute.
func (t *Template) Stale() bool {
	return t.stale
}

// Len returns the number of segments.
func (t *Template) Len() int {
	return len(t.segments)
}

// MaxSegments returns the segment bound.
func (t *Template) MaxSegments() int {
	return t.maxSegments
}

// At returns a pointer to segment i for read access on hot paths.
// Callers must not modify the endpoints through it; use SetEndpoints.
func (t *Template) At(i int) *LineSegment {
	return &t.segments[i]
}

// Segments returns a copy of the segments.
func (t *Template) Segments() []LineSegment {
	out := make([]LineSegment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	c := &Template{
		Name:        t.Name,
		maxSegments: t.maxSegments,
		stale:       t.stale,
	}
	c.segments = t.Segments()
	return c
}
