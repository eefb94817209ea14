// Package render draws the tracked template and tracking statistics:
// PNG snapshots with gonum/plot and HTML charts with go-echarts.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/rjdini/jaer-sub001/internal/template"
)

// SnapshotSize is the edge length of saved snapshot images.
const SnapshotSize = 6 * vg.Inch

// Snapshot builds a plot of the template segments over the given events,
// both in normalised coordinates. Each segment gets its own colour.
func Snapshot(title string, segs []template.LineSegment, pts []template.Point) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.X.Min, p.X.Max = -1, 1
	p.Y.Min, p.Y.Max = -1, 1
	p.Add(plotter.NewGrid())

	if len(pts) > 0 {
		xys := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("events scatter: %w", err)
		}
		sc.GlyphStyle.Radius = vg.Points(1)
		sc.GlyphStyle.Color = plotutil.DarkColors[len(plotutil.DarkColors)-1]
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("events (%d)", len(pts)), sc)
	}

	for i, s := range segs {
		line, err := plotter.NewLine(plotter.XYs{
			{X: s.Start.X, Y: s.Start.Y},
			{X: s.End.X, Y: s.End.Y},
		})
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders a snapshot as PNG to w.
func WritePNG(w io.Writer, title string, segs []template.LineSegment, pts []template.Point) error {
	p, err := Snapshot(title, segs, pts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(SnapshotSize, SnapshotSize, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// Plotter writes numbered snapshot images into an output directory while
// enabled.
type Plotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	frameIdx  int
}

// NewPlotter creates a disabled plotter.
func NewPlotter() *Plotter {
	return &Plotter{}
}

// Start enables the plotter, creating outputDir if needed and restarting
// frame numbering.
func (pl *Plotter) Start(outputDir string) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	pl.outputDir = outputDir
	pl.enabled = true
	pl.frameIdx = 0
	return nil
}

// Stop disables the plotter.
func (pl *Plotter) Stop() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.enabled = false
}

// IsEnabled returns true if the plotter is currently writing frames.
func (pl *Plotter) IsEnabled() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.enabled
}

// OutputDir returns the directory frames are written to.
func (pl *Plotter) OutputDir() string {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.outputDir
}

// Frame saves the next snapshot and returns its path. It returns "" and
// no error while disabled.
func (pl *Plotter) Frame(title string, segs []template.LineSegment, pts []template.Point) (string, error) {
	pl.mu.Lock()
	if !pl.enabled {
		pl.mu.Unlock()
		return "", nil
	}
	pl.frameIdx++
	path := filepath.Join(pl.outputDir, fmt.Sprintf("frame_%05d.png", pl.frameIdx))
	pl.mu.Unlock()

	p, err := Snapshot(title, segs, pts)
	if err != nil {
		return "", err
	}
	if err := p.Save(SnapshotSize, SnapshotSize, path); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return path, nil
}
