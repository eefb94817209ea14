package tracking

import (
	"github.com/rjdini/jaer-sub001/internal/monitoring"
	"github.com/rjdini/jaer-sub001/internal/template"
)

// FoldResult reports what a fold did to the template.
type FoldResult int

const (
	FoldApplied          FoldResult = iota // Endpoints rewritten, M reset
	FoldSkippedSingular                    // |det M| below epsilon; template untouched
	FoldSkippedNonFinite                   // An endpoint mapped to NaN/Inf; template untouched
)

// String returns a lower-case name for logs and debug records.
func (r FoldResult) String() string {
	switch r {
	case FoldApplied:
		return "applied"
	case FoldSkippedSingular:
		return "skipped_singular"
	case FoldSkippedNonFinite:
		return "skipped_non_finite"
	default:
		return "unknown"
	}
}

// Fold commits the accumulated correction into the template: both
// endpoints of every segment are mapped through M⁻¹, derived geometry is
// recomputed and M is reset to identity.
//
// If M is near-singular, or any endpoint would map to a non-finite
// coordinate, no endpoint is written and the prior pose is kept.
//
// A skipped fold still resets M to identity: the pending correction is
// discarded, not retained for a later fold. Callers reading M after a
// FoldSkipped* result see identity, and tracking resumes from the
// stored pose.
func Fold(t *template.Template, m *Matrix, eps float64) FoldResult {
	det := m.Det()
	inv, ok := m.Inverse(eps)
	if !ok {
		monitoring.Warnf("tracking: fold skipped for template %q: near-singular transform (det=%g)", t.Name, det)
		*m = Identity()
		return FoldSkippedSingular
	}

	// Map everything first so a failure part-way leaves the template whole.
	moved := make([]template.LineSegment, t.Len())
	for i := range moved {
		seg := t.At(i)
		s, okS := inv.Project(seg.Start)
		e, okE := inv.Project(seg.End)
		if !okS || !okE {
			monitoring.Warnf("tracking: fold skipped for template %q: segment %d maps to a non-finite endpoint", t.Name, i)
			*m = Identity()
			return FoldSkippedNonFinite
		}
		moved[i].Start, moved[i].End = s, e
	}

	for i := range moved {
		t.SetEndpoints(i, moved[i].Start, moved[i].End)
	}
	t.Precompute()
	*m = Identity()
	return FoldApplied
}

// Fold commits M into t using the configured singular epsilon.
func (e *Estimator) Fold(t *template.Template) FoldResult {
	det := e.M.Det()
	r := Fold(t, &e.M, e.Config.SingularEpsilon)
	if e.DebugCollector != nil && e.DebugCollector.IsEnabled() {
		e.DebugCollector.RecordFold(r.String(), det)
	}
	return r
}
