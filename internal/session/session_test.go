package session

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjdini/jaer-sub001/internal/capture"
	"github.com/rjdini/jaer-sub001/internal/events"
	"github.com/rjdini/jaer-sub001/internal/monitoring"
	"github.com/rjdini/jaer-sub001/internal/template"
	"github.com/rjdini/jaer-sub001/internal/testutil"
	"github.com/rjdini/jaer-sub001/internal/tracking"
)

func testConfig() Config {
	return Config{
		Tracking: tracking.Config{
			DistanceThreshold: 0.05,
			LearningRate:      0.1,
			Mode:              tracking.FullProjective,
			SingularEpsilon:   1e-9,
		},
		Capture: capture.Config{
			GridSize:       128,
			SampleCount:    64,
			AnchorStride:   4,
			AngleSteps:     32,
			RayLength:      32,
			BandHalfWidth:  1,
			AcceptFraction: 0.8,
			MaxSegments:    500,
		},
		SensorWidth:  128,
		SensorHeight: 128,
		StatsWindow:  256,
	}
}

// pixelBox builds a rectangle template whose corners sit on pixel centres.
func pixelBox(x0, y0, x1, y1 int) *template.Template {
	p := func(x, y int) template.Point {
		pt, _ := normalize(128, 128, events.Event{X: x, Y: y})
		return pt
	}
	a, b, c, d := p(x0, y0), p(x1, y0), p(x1, y1), p(x0, y1)
	return template.FromSegments("box", 0, []template.LineSegment{
		template.NewLineSegment(a.X, a.Y, b.X, b.Y),
		template.NewLineSegment(b.X, b.Y, c.X, c.Y),
		template.NewLineSegment(c.X, c.Y, d.X, d.Y),
		template.NewLineSegment(d.X, d.Y, a.X, a.Y),
	})
}

// leftEdge is a pixel on the box's left side, two pixels inside it.
var leftEdge = events.Event{X: 34, Y: 64, On: true}

func leftmost(segs []template.LineSegment) template.LineSegment {
	sort.Slice(segs, func(i, j int) bool { return segs[i].Center.X < segs[j].Center.X })
	return segs[0]
}

type hookRecorder struct {
	mu    sync.Mutex
	calls []*template.Template
}

func (h *hookRecorder) record(t *template.Template) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, t)
}

func (h *hookRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	var mu sync.Mutex
	original := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(original) })
	return &lines
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 128, cfg.SensorWidth)
	assert.Equal(t, 256, cfg.StatsWindow)
	assert.False(t, cfg.AsyncSynthesis)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testConfig().Validate())

	bad := []func(*Config){
		func(c *Config) { c.SensorWidth = 1 },
		func(c *Config) { c.FoldEvery = -2 },
		func(c *Config) { c.StatsWindow = 0 },
		func(c *Config) { c.Tracking.DistanceThreshold = 0 },
		func(c *Config) { c.Tracking.LearningRate = 1 },
		func(c *Config) { c.Capture.RayLength = 0 },
	}
	for i, mutate := range bad {
		cfg := testConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), nil)
	p, ok := s.Normalize(events.Event{X: 0, Y: 127})
	require.True(t, ok)
	assert.Equal(t, -1+1.0/128, p.X)
	assert.Equal(t, 1-1.0/128, p.Y)

	for _, ev := range []events.Event{{X: -1}, {X: 128}, {Y: 200}} {
		_, ok := s.Normalize(ev)
		assert.False(t, ok, "%+v", ev)
	}

	x, y := s.ToSensor(p)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 127, y, 1e-12)
}

func TestObserveApplies(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	r := s.Observe(leftEdge)
	assert.Equal(t, tracking.Applied, r.Status)
	assert.Equal(t, 3, r.Index)
	assert.False(t, r.Captured)
	assert.False(t, s.Matrix().IsIdentity())

	r = s.Observe(events.Event{X: 5, Y: 5})
	assert.Equal(t, tracking.NoMatch, r.Status)
	assert.Equal(t, -1, r.Index)

	r = s.Observe(events.Event{X: 500, Y: 64})
	assert.Equal(t, tracking.NoMatch, r.Status)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Applied)
	assert.Equal(t, uint64(2), st.NoMatch)
}

func TestSetDistanceThresholdAndMode(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	s.SetDistanceThreshold(0.001)
	assert.Equal(t, tracking.TooFar, s.Observe(leftEdge).Status)
	assert.True(t, s.Matrix().IsIdentity())

	s.SetDistanceThreshold(0.05)
	require.Equal(t, tracking.Applied, s.Observe(leftEdge).Status)

	s.SetMode(tracking.RotationScaleOnly)
	assert.Equal(t, tracking.RotationScaleOnly, s.Mode())
	assert.True(t, s.Matrix().IsIdentity(), "mode switch resets M")

	s.Observe(leftEdge)
	m := s.Matrix()
	assert.Zero(t, m[6])
	assert.Zero(t, m[7])
	assert.Equal(t, m[0], m[4])
}

func TestFoldEvery(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.FoldEvery = 3
	s := New(cfg, pixelBox(32, 32, 96, 96))
	before := leftmost(s.Template().Segments()).Center.X

	s.Observe(leftEdge)
	s.Observe(leftEdge)
	assert.False(t, s.Matrix().IsIdentity())
	s.Observe(leftEdge)
	assert.True(t, s.Matrix().IsIdentity())
	assert.Equal(t, uint64(1), s.Stats().Folds)

	after := leftmost(s.Template().Segments()).Center.X
	assert.Greater(t, after, before, "left edge moves toward the observations")
}

func TestObservePacketFoldsAtBoundary(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	sum := s.ObservePacket([]events.Event{leftEdge, leftEdge, {X: 5, Y: 5}})
	assert.Equal(t, PacketSummary{Applied: 2, NoMatch: 1, Folded: true}, sum)
	assert.True(t, s.Matrix().IsIdentity())

	sum = s.ObservePacket([]events.Event{{X: 5, Y: 5}})
	assert.False(t, sum.Folded, "nothing applied, nothing to fold")
}

func TestRenderFolds(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	before := leftmost(s.Render()).Center.X

	s.Observe(leftEdge)
	segs := s.Render()
	require.Len(t, segs, 4)
	assert.True(t, s.Matrix().IsIdentity())
	assert.Greater(t, leftmost(segs).Center.X, before)
	assert.Equal(t, uint64(1), s.Stats().Folds)
}

func TestCaptureSynthesizesTemplate(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	hooks := &hookRecorder{}
	s.OnSynthesis(hooks.record)

	s.Observe(leftEdge)
	s.StartCapture()
	assert.Equal(t, Capturing, s.State())
	assert.True(t, s.Matrix().IsIdentity(), "entering capture resets M")

	r := s.Observe(events.Event{X: 8, Y: 8})
	assert.True(t, r.Captured)
	assert.Equal(t, tracking.NoMatch, r.Status)
	n, target := s.CaptureProgress()
	assert.Equal(t, 1, n)
	assert.Equal(t, 64, target)

	// Rendering mid-capture shows the previous template.
	assert.Len(t, s.Render(), 4)

	// 63 more samples along row 8 close the window.
	sum := s.ObservePacket(testutil.Row(8, 8, 39, 2)[1:])
	assert.Equal(t, 63, sum.Captured)
	assert.True(t, sum.CaptureDone)
	assert.False(t, sum.Folded)

	assert.Equal(t, Tracking, s.State())
	tmpl := s.Template()
	assert.Equal(t, CapturedTemplateName, tmpl.Name)
	require.Equal(t, 1, tmpl.Len())
	assert.InDelta(t, 0, tmpl.At(0).Angle(), 1e-12)
	assert.Equal(t, 1, hooks.count())
	assert.Equal(t, uint64(1), s.Stats().Syntheses)
	assert.Equal(t, uint64(64), s.Stats().Captured)
}

func TestCaptureAsync(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AsyncSynthesis = true
	s := New(cfg, pixelBox(32, 32, 96, 96))
	hooks := &hookRecorder{}
	s.OnSynthesis(hooks.record)

	s.StartCapture()
	sum := s.ObservePacket(testutil.Row(8, 8, 39, 2))
	require.True(t, sum.CaptureDone)
	s.Wait()

	assert.Equal(t, Tracking, s.State())
	assert.Equal(t, CapturedTemplateName, s.Template().Name)
	assert.Equal(t, 1, hooks.count())
}

func TestStaleSynthesisDiscarded(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	s.StartCapture()
	s.mu.Lock()
	gen := s.generation
	s.state = Synthesizing
	s.mu.Unlock()

	// The user abandoned capture while the line search was running.
	s.StopCapture()
	assert.Equal(t, Tracking, s.State())

	s.mu.Lock()
	installed := s.install(gen, []template.LineSegment{template.NewLineSegment(-1, 0, 1, 0)})
	s.mu.Unlock()

	assert.Nil(t, installed)
	assert.Equal(t, "box", s.Template().Name)
	assert.Zero(t, s.Stats().Syntheses)
}

func TestSynthesizingDropsPoints(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	s.mu.Lock()
	s.state = Synthesizing
	s.mu.Unlock()

	r := s.Observe(leftEdge)
	assert.Equal(t, tracking.NoMatch, r.Status)
	assert.False(t, r.Captured)
	assert.True(t, s.Matrix().IsIdentity())
}

func TestEmptySynthesisKeepsTemplate(t *testing.T) {
	logs := captureLogs(t)

	s := New(testConfig(), pixelBox(32, 32, 96, 96))
	s.StartCapture()
	sum := s.ObservePacket(testutil.Noise(128, 128, 64, 5))
	require.True(t, sum.CaptureDone)

	assert.Equal(t, Tracking, s.State())
	assert.Equal(t, "box", s.Template().Name)
	assert.Equal(t, 4, s.Template().Len())
	assert.Equal(t, uint64(1), s.Stats().Syntheses)

	found := false
	for _, l := range *logs {
		if strings.Contains(l, "no lines") && strings.Contains(l, `"box"`) {
			found = true
		}
	}
	assert.True(t, found, "expected a warning about the empty capture, got %v", *logs)
}

func TestSetTemplateAbandonsCapture(t *testing.T) {
	t.Parallel()

	s := New(testConfig(), nil)
	assert.Equal(t, 0, s.Template().Len())

	s.StartCapture()
	s.Observe(events.Event{X: 1, Y: 1})
	s.SetTemplate(pixelBox(32, 32, 96, 96))

	assert.Equal(t, Tracking, s.State())
	n, _ := s.CaptureProgress()
	assert.Zero(t, n)
	assert.Equal(t, tracking.Applied, s.Observe(leftEdge).Status)

	s.SetTemplate(nil)
	assert.Equal(t, 0, s.Template().Len())
}

func TestTrackingConvergesOnShiftedBox(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Tracking.Mode = tracking.RotationScaleOnly
	s := New(cfg, pixelBox(32, 32, 96, 96))

	// The observed box sits two pixels right and two pixels up.
	perimeter := testutil.Rectangle(34, 34, 98, 98)
	var first PacketSummary
	for round := 0; round < 40; round++ {
		for i, batch := range events.Batches(testutil.Shuffle(perimeter, int64(round)), 128) {
			sum := s.ObservePacket(batch)
			if round == 0 && i == 0 {
				first = sum
			}
		}
	}
	assert.Greater(t, first.Applied, 0)

	st := s.Stats()
	assert.Less(t, st.MeanAbsErr, 0.005)
	assert.Zero(t, st.SkippedFolds)

	want, _ := normalize(128, 128, events.Event{X: 34, Y: 66})
	left := leftmost(s.Render())
	assert.InDelta(t, want.X, left.Center.X, 1.0/64, "left edge within one pixel of the observations")
	assert.False(t, math.IsNaN(left.Center.Y))
}
