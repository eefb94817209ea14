package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rjdini/jaer-sub001/internal/debug"
	"github.com/rjdini/jaer-sub001/internal/events"
	"github.com/rjdini/jaer-sub001/internal/monitoring"
	"github.com/rjdini/jaer-sub001/internal/render"
	"github.com/rjdini/jaer-sub001/internal/session"
	"github.com/rjdini/jaer-sub001/internal/template"
)

// maxChartResiduals bounds the residual history kept for the dashboard.
const maxChartResiduals = 20000

// pipeline feeds event batches from a source into a session and keeps
// what the plots and the run summary need.
type pipeline struct {
	sess      *session.Session
	collector *debug.Collector
	plotter   *render.Plotter
	plotEvery int

	mu        sync.Mutex
	packets   uint64
	events    uint64
	recent    []template.Point // ring of the last len(recent) in-sensor events
	next      int
	filled    bool
	residuals []float64
	outcomes  map[string]int
}

func newPipeline(sess *session.Session, plotter *render.Plotter, plotEvery, recent int) *pipeline {
	p := &pipeline{
		sess:      sess,
		collector: debug.NewCollector(),
		plotter:   plotter,
		plotEvery: plotEvery,
		recent:    make([]template.Point, recent),
		outcomes:  make(map[string]int),
	}
	p.collector.SetEnabled(true)
	sess.SetDebugCollector(p.collector)
	return p
}

// HandleEvents implements events.Handler. Sources call it from a single
// goroutine; the batch is not retained.
func (p *pipeline) HandleEvents(evs []events.Event) {
	p.mu.Lock()
	p.packets++
	p.events += uint64(len(evs))
	id := p.packets
	for _, ev := range evs {
		if pt, ok := p.sess.Normalize(ev); ok && len(p.recent) > 0 {
			p.recent[p.next] = pt
			p.next++
			if p.next == len(p.recent) {
				p.next, p.filled = 0, true
			}
		}
	}
	p.mu.Unlock()

	p.collector.BeginPacket(id)
	sum := p.sess.ObservePacket(evs)
	pkt := p.collector.Emit()

	p.mu.Lock()
	if pkt != nil {
		for k, v := range pkt.Outcomes() {
			p.outcomes[k] += v
		}
		p.residuals = append(p.residuals, pkt.AppliedResiduals()...)
		if over := len(p.residuals) - maxChartResiduals; over > 0 {
			p.residuals = append(p.residuals[:0], p.residuals[over:]...)
		}
	}
	p.outcomes["captured"] += sum.Captured
	plot := p.plotEvery > 0 && id%uint64(p.plotEvery) == 0
	p.mu.Unlock()

	if sum.CaptureDone {
		monitoring.Logf("tracker: capture window closed after packet %d", id)
	}
	if plot {
		p.frame(fmt.Sprintf("packet %d", id))
	}
}

// frame writes one snapshot of the current template over recent events.
func (p *pipeline) frame(title string) {
	if p.plotter == nil || !p.plotter.IsEnabled() {
		return
	}
	segs := p.sess.Render()
	if _, err := p.plotter.Frame(title, segs, p.recentPoints()); err != nil {
		monitoring.Warnf("tracker: snapshot failed: %v", err)
	}
}

func (p *pipeline) recentPoints() []template.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.filled {
		return append([]template.Point(nil), p.recent[:p.next]...)
	}
	out := make([]template.Point, 0, len(p.recent))
	out = append(out, p.recent[p.next:]...)
	return append(out, p.recent[:p.next]...)
}

// counts returns packets and events seen so far.
func (p *pipeline) counts() (packets, evs uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.packets, p.events
}

// writeDashboard renders the residual and outcome charts into dir.
func (p *pipeline) writeDashboard(dir string) (string, error) {
	p.mu.Lock()
	residuals := append([]float64(nil), p.residuals...)
	outcomes := make(map[string]int, len(p.outcomes))
	for k, v := range p.outcomes {
		outcomes[k] = v
	}
	p.mu.Unlock()

	path := filepath.Join(dir, "dashboard.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dashboard: %w", err)
	}
	defer f.Close()
	if err := render.WriteDashboard(f, residuals, outcomes); err != nil {
		return "", err
	}
	return path, f.Close()
}
