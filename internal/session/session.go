package session

import (
	"sync"

	"github.com/rjdini/jaer-sub001/internal/capture"
	"github.com/rjdini/jaer-sub001/internal/events"
	"github.com/rjdini/jaer-sub001/internal/monitoring"
	"github.com/rjdini/jaer-sub001/internal/template"
	"github.com/rjdini/jaer-sub001/internal/tracking"
)

// State is what the session does with incoming points.
type State int

const (
	Tracking     State = iota // Points drive the estimator
	Capturing                 // Points fill the capture grid
	Synthesizing              // Window closed, background line search running; points are dropped
)

// String returns a lower-case name for logs.
func (s State) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Capturing:
		return "capturing"
	case Synthesizing:
		return "synthesizing"
	default:
		return "unknown"
	}
}

// CapturedTemplateName names templates produced by synthesis.
const CapturedTemplateName = "captured"

// Result describes how one observation was handled.
type Result struct {
	Status      tracking.Status
	Index       int     // Matched segment, -1 when none
	Err         float64 // Signed error before the update
	Captured    bool    // Point was counted into the capture window
	CaptureDone bool    // Point closed the capture window
}

// PacketSummary aggregates the results of ObservePacket.
type PacketSummary struct {
	Applied     int
	TooFar      int
	NoMatch     int
	Captured    int
	CaptureDone bool
	Folded      bool // A fold ran at the packet boundary
}

// SynthesisHook is told about every template installed by synthesis. It is
// called without the session lock held.
type SynthesisHook func(t *template.Template)

// Session is one independent tracker instance. All methods are safe for
// concurrent use; a single mutex serialises observations, folds and
// mode or template switches.
type Session struct {
	cfg Config

	tmpl    *template.Template
	est     *tracking.Estimator
	capture *capture.Capture
	state   State
	stats   *Stats

	// generation changes on every mode or template switch so that a
	// background synthesis started earlier can tell it is stale.
	generation uint64
	sinceFold  int
	hook       SynthesisHook

	wg sync.WaitGroup
	mu sync.Mutex
}

// New creates a tracking session. A nil template starts with an empty
// one, which matches nothing until replaced or captured.
func New(cfg Config, t *template.Template) *Session {
	if t == nil {
		t = template.New("empty", cfg.Capture.MaxSegments)
	}
	return &Session{
		cfg:     cfg,
		tmpl:    t,
		est:     tracking.NewEstimator(cfg.Tracking),
		capture: capture.NewCapture(cfg.Capture),
		stats:   newStats(cfg.StatsWindow),
	}
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// State returns the current mode.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetDebugCollector attaches a collector to the estimator.
func (s *Session) SetDebugCollector(c tracking.DebugCollector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.est.DebugCollector = c
}

// OnSynthesis registers a hook for synthesised templates.
func (s *Session) OnSynthesis(h SynthesisHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// SetTemplate replaces the template, abandons any capture and resets M.
// The session takes ownership of t.
func (s *Session) SetTemplate(t *template.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		t = template.New("empty", s.cfg.Capture.MaxSegments)
	}
	s.tmpl = t
	s.switchTo(Tracking)
}

// Template returns a copy of the current template.
func (s *Session) Template() *template.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tmpl.Clone()
}

// SetMode changes the tracking mode. M is reset so the new manifold
// constraint starts from identity.
func (s *Session) SetMode(m tracking.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Tracking.Mode = m
	s.est.Config.Mode = m
	s.est.Reset()
	s.sinceFold = 0
}

// Mode returns the current tracking mode.
func (s *Session) Mode() tracking.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.est.Config.Mode
}

// SetDistanceThreshold changes the acceptance bound on |err|.
func (s *Session) SetDistanceThreshold(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Tracking.DistanceThreshold = v
	s.est.Config.DistanceThreshold = v
}

// StartCapture switches to capture mode with an empty grid.
func (s *Session) StartCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchTo(Capturing)
}

// StopCapture abandons capture and returns to tracking with the
// previous template.
func (s *Session) StopCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Tracking {
		return
	}
	s.switchTo(Tracking)
}

// switchTo resets counters, grid and M and invalidates any running
// synthesis. Caller holds mu.
func (s *Session) switchTo(st State) {
	s.generation++
	s.est.Reset()
	s.sinceFold = 0
	if st == Capturing {
		s.capture.Start()
	} else {
		s.capture.Stop()
	}
	s.state = st
}

// Normalize maps a sensor pixel to template coordinates: pixel centres
// spread evenly over (-1, 1) on each axis. ok is false for pixels outside
// the sensor.
func (s *Session) Normalize(ev events.Event) (template.Point, bool) {
	return normalize(s.cfg.SensorWidth, s.cfg.SensorHeight, ev)
}

func normalize(w, h int, ev events.Event) (template.Point, bool) {
	if ev.X < 0 || ev.Y < 0 || ev.X >= w || ev.Y >= h {
		return template.Point{}, false
	}
	return template.Point{
		X: (2*float64(ev.X)+1)/float64(w) - 1,
		Y: (2*float64(ev.Y)+1)/float64(h) - 1,
	}, true
}

// ToSensor maps template coordinates back to (fractional) sensor pixels.
func (s *Session) ToSensor(p template.Point) (x, y float64) {
	w, h := float64(s.cfg.SensorWidth), float64(s.cfg.SensorHeight)
	return ((p.X+1)*w - 1) / 2, ((p.Y+1)*h - 1) / 2
}

// Observe handles one event.
func (s *Session) Observe(ev events.Event) Result {
	s.mu.Lock()
	r, installed := s.observe(ev)
	hook := s.hook
	s.mu.Unlock()

	if installed != nil && hook != nil {
		hook(installed)
	}
	return r
}

// ObservePacket handles a batch of events under one lock acquisition and
// folds at the end of the batch if anything was applied.
func (s *Session) ObservePacket(evs []events.Event) PacketSummary {
	var sum PacketSummary
	var installed *template.Template

	s.mu.Lock()
	for _, ev := range evs {
		r, t := s.observe(ev)
		if t != nil {
			installed = t
		}
		switch {
		case r.Captured:
			sum.Captured++
		case r.Status == tracking.Applied:
			sum.Applied++
		case r.Status == tracking.TooFar:
			sum.TooFar++
		default:
			sum.NoMatch++
		}
		sum.CaptureDone = sum.CaptureDone || r.CaptureDone
	}
	if s.state == Tracking && s.sinceFold > 0 {
		s.fold()
		sum.Folded = true
	}
	hook := s.hook
	s.mu.Unlock()

	if installed != nil && hook != nil {
		hook(installed)
	}
	return sum
}

// HandleEvents lets a Session act as an events.Handler.
func (s *Session) HandleEvents(evs []events.Event) {
	s.ObservePacket(evs)
}

// observe is Observe with mu held. It returns the template installed by
// an inline synthesis, if any.
func (s *Session) observe(ev events.Event) (Result, *template.Template) {
	p, ok := s.Normalize(ev)
	if !ok {
		s.stats.NoMatch++
		return Result{Status: tracking.NoMatch, Index: -1}, nil
	}

	switch s.state {
	case Capturing:
		counted, done := s.capture.Add(p)
		r := Result{Status: tracking.NoMatch, Index: -1, Captured: counted, CaptureDone: done}
		if counted {
			s.stats.Captured++
		}
		if !done {
			return r, nil
		}
		return r, s.closeWindow()
	case Synthesizing:
		return Result{Status: tracking.NoMatch, Index: -1}, nil
	}

	m := s.est.Consume(s.tmpl, p)
	s.stats.addMatch(m)
	if m.Status == tracking.Applied {
		s.sinceFold++
		if s.cfg.FoldEvery > 0 && s.sinceFold >= s.cfg.FoldEvery {
			s.fold()
		}
	}
	return Result{Status: m.Status, Index: m.Index, Err: m.Err}, nil
}

// closeWindow hands the filled grid to the synthesizer. Caller holds mu.
func (s *Session) closeWindow() *template.Template {
	grid := s.capture.Take()
	gen := s.generation
	cfg := s.cfg.Capture

	if !s.cfg.AsyncSynthesis {
		segs := capture.Synthesize(grid, cfg)
		return s.install(gen, segs)
	}

	s.state = Synthesizing
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		segs := capture.Synthesize(grid, cfg)

		s.mu.Lock()
		installed := s.install(gen, segs)
		hook := s.hook
		s.mu.Unlock()

		if installed != nil && hook != nil {
			hook(installed)
		}
	}()
	return nil
}

// install adopts synthesised segments unless the session switched modes
// after the window closed. An empty result keeps the previous template.
// Caller holds mu.
func (s *Session) install(gen uint64, segs []template.LineSegment) *template.Template {
	if gen != s.generation {
		monitoring.Logf("session: discarding synthesis result (%d lines) from an abandoned capture", len(segs))
		return nil
	}
	s.stats.Syntheses++
	s.switchTo(Tracking)
	if len(segs) == 0 {
		monitoring.Warnf("session: capture produced no lines, keeping template %q", s.tmpl.Name)
		return nil
	}
	s.tmpl = template.FromSegments(CapturedTemplateName, s.cfg.Capture.MaxSegments, segs)
	monitoring.Logf("session: installed captured template with %d lines", s.tmpl.Len())
	return s.tmpl.Clone()
}

// fold commits M into the template. Caller holds mu.
func (s *Session) fold() tracking.FoldResult {
	r := s.est.Fold(s.tmpl)
	s.stats.addFold(r)
	s.sinceFold = 0
	return r
}

// Render folds any pending correction into the template and returns the
// current segments. While capturing, the previous template is returned
// unchanged.
func (s *Session) Render() []template.LineSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Tracking && !s.est.M.IsIdentity() {
		s.fold()
	}
	return s.tmpl.Segments()
}

// Matrix returns the pending correction.
func (s *Session) Matrix() tracking.Matrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.est.M
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.snapshot()
}

// Residuals returns the windowed applied |err| values, oldest first.
func (s *Session) Residuals() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.residuals()
}

// CaptureProgress returns the samples counted so far and the window size.
func (s *Session) CaptureProgress() (samples, target int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.Samples(), s.cfg.Capture.SampleCount
}

// Wait blocks until background synthesis has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}
