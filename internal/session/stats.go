package session

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rjdini/jaer-sub001/internal/tracking"
)

// Stats counts outcomes and keeps a window of recent applied residuals.
// It is guarded by the owning session's lock.
type Stats struct {
	Applied      uint64
	TooFar       uint64
	NoMatch      uint64
	Captured     uint64
	Folds        uint64
	SkippedFolds uint64
	Syntheses    uint64

	window []float64 // |err| ring buffer
	next   int
	full   bool
}

func newStats(window int) *Stats {
	if window < 1 {
		window = 1
	}
	return &Stats{window: make([]float64, window)}
}

func (s *Stats) addMatch(m tracking.Match) {
	switch m.Status {
	case tracking.Applied:
		s.Applied++
		s.window[s.next] = math.Abs(m.Err)
		s.next++
		if s.next == len(s.window) {
			s.next = 0
			s.full = true
		}
	case tracking.TooFar:
		s.TooFar++
	default:
		s.NoMatch++
	}
}

func (s *Stats) addFold(r tracking.FoldResult) {
	if r == tracking.FoldApplied {
		s.Folds++
	} else {
		s.SkippedFolds++
	}
}

// residuals returns the windowed |err| values, oldest first.
func (s *Stats) residuals() []float64 {
	if !s.full {
		return append([]float64(nil), s.window[:s.next]...)
	}
	out := make([]float64, 0, len(s.window))
	out = append(out, s.window[s.next:]...)
	return append(out, s.window[:s.next]...)
}

// StatsSnapshot is a point-in-time copy of the session statistics.
type StatsSnapshot struct {
	Applied      uint64  `json:"applied"`
	TooFar       uint64  `json:"too_far"`
	NoMatch      uint64  `json:"no_match"`
	Captured     uint64  `json:"captured"`
	Folds        uint64  `json:"folds"`
	SkippedFolds uint64  `json:"skipped_folds"`
	Syntheses    uint64  `json:"syntheses"`
	Window       int     `json:"window"`          // Residuals in the window
	MeanAbsErr   float64 `json:"mean_abs_err"`    // Mean |err| over the window
	StdAbsErr    float64 `json:"std_abs_err"`     // Sample standard deviation
	MaxAbsErr    float64 `json:"max_abs_err"`
	Trend        float64 `json:"trend_per_point"` // Least-squares slope of |err| per applied point
}

// AcceptRate is the fraction of matched points that were applied.
func (s StatsSnapshot) AcceptRate() float64 {
	total := s.Applied + s.TooFar + s.NoMatch
	if total == 0 {
		return 0
	}
	return float64(s.Applied) / float64(total)
}

func (s *Stats) snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Applied:      s.Applied,
		TooFar:       s.TooFar,
		NoMatch:      s.NoMatch,
		Captured:     s.Captured,
		Folds:        s.Folds,
		SkippedFolds: s.SkippedFolds,
		Syntheses:    s.Syntheses,
	}
	r := s.residuals()
	snap.Window = len(r)
	if len(r) == 0 {
		return snap
	}
	snap.MaxAbsErr = floats.Max(r)
	if len(r) == 1 {
		snap.MeanAbsErr = r[0]
		return snap
	}
	snap.MeanAbsErr, snap.StdAbsErr = stat.MeanStdDev(r, nil)

	xs := make([]float64, len(r))
	floats.Span(xs, 0, float64(len(r)-1))
	_, snap.Trend = stat.LinearRegression(xs, r, nil, false)
	return snap
}
