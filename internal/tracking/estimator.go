package tracking

import (
	"math"

	"github.com/rjdini/jaer-sub001/internal/config"
	"github.com/rjdini/jaer-sub001/internal/template"
)

// Status is the per-point outcome of Consume.
type Status int

const (
	NoMatch Status = iota // No template line gated the point
	TooFar                // Best line's |error| exceeded the distance threshold
	Applied               // M was updated
)

// String returns a lower-case name for logs and debug records.
func (s Status) String() string {
	switch s {
	case NoMatch:
		return "no_match"
	case TooFar:
		return "too_far"
	case Applied:
		return "applied"
	default:
		return "unknown"
	}
}

// Config holds the estimator parameters.
type Config struct {
	DistanceThreshold float64 // Acceptance bound on |error|
	LearningRate      float64 // Fraction of the error corrected per point
	Mode              Mode
	SingularEpsilon   float64 // Fold is skipped when |det M| is below this
}

// DefaultConfig returns estimator configuration loaded from the
// canonical tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests and binaries
// that have already validated config availability.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig. An
// unparseable mode has already been rejected by Validate and falls back
// to FullProjective here.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	mode, _ := ParseMode(cfg.GetTrackingMode())
	return Config{
		DistanceThreshold: cfg.GetDistanceThreshold(),
		LearningRate:      cfg.GetLearningRate(),
		Mode:              mode,
		SingularEpsilon:   cfg.GetSingularEpsilon(),
	}
}

// DebugCollector receives per-point match decisions and fold outcomes.
// Decoupled from the debug package to avoid an import cycle.
type DebugCollector interface {
	IsEnabled() bool
	RecordMatch(x, y float64, index int, residual float64, outcome string)
	RecordFold(outcome string, det float64)
}

// Match describes how a single point was handled.
type Match struct {
	Status Status
	Index  int     // Matched segment, -1 for NoMatch
	Err    float64 // Signed algebraic error against that segment before the update
}

// Estimator maintains the incremental correction M between folds.
//
// An Estimator is not safe for concurrent use; the owning session holds
// one lock around the estimator and its template.
type Estimator struct {
	M      Matrix
	Config Config

	// DebugCollector captures match decisions for visualisation (optional)
	DebugCollector DebugCollector
}

// NewEstimator creates an estimator with M at identity.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{M: Identity(), Config: cfg}
}

// Reset returns M to identity.
func (e *Estimator) Reset() {
	e.M = Identity()
}

// Residual returns the signed algebraic error of p against seg under m:
// a·(m1x+m2y+m3) + b·(m4x+m5y+m6) + c·(m7x+m8y+m9).
func Residual(m Matrix, seg *template.LineSegment, p template.Point) float64 {
	x, y, w := m.Homogeneous(p)
	return seg.A*x + seg.B*y + seg.C*w
}

// Consume matches p against the template and, if the best gated line is
// within the distance threshold, applies one error-proportional update to
// M followed by the mode projection. A stale template is precomputed
// first.
func (e *Estimator) Consume(t *template.Template, p template.Point) Match {
	if t.Stale() {
		t.Precompute()
	}

	// M·p is shared by every candidate line.
	tx, ty, tw := e.M.Homogeneous(p)

	best := -1
	var bestErr float64
	for i := 0; i < t.Len(); i++ {
		seg := t.At(i)
		if seg.Degenerate() || !seg.Gates(p) {
			continue
		}
		err := seg.A*tx + seg.B*ty + seg.C*tw
		if best < 0 || math.Abs(err) < math.Abs(bestErr) {
			best = i
			bestErr = err
		}
	}

	if best < 0 {
		e.record(p, -1, 0, NoMatch)
		return Match{Status: NoMatch, Index: -1}
	}
	if math.Abs(bestErr) > e.Config.DistanceThreshold {
		e.record(p, best, bestErr, TooFar)
		return Match{Status: TooFar, Index: best, Err: bestErr}
	}

	seg := t.At(best)
	rate := e.Config.LearningRate * bestErr
	ra, rb, rc := rate*seg.A, rate*seg.B, rate*seg.C
	m := &e.M
	m[0] -= ra * p.X
	m[1] -= ra * p.Y
	m[2] -= ra
	m[3] -= rb * p.X
	m[4] -= rb * p.Y
	m[5] -= rb
	m[6] -= rc * p.X
	m[7] -= rc * p.Y
	m[8] -= rc

	ProjectMode(m, e.Config.Mode)

	e.record(p, best, bestErr, Applied)
	return Match{Status: Applied, Index: best, Err: bestErr}
}

func (e *Estimator) record(p template.Point, index int, residual float64, s Status) {
	if e.DebugCollector != nil && e.DebugCollector.IsEnabled() {
		e.DebugCollector.RecordMatch(p.X, p.Y, index, residual, s.String())
	}
}
