package capture

import "github.com/rjdini/jaer-sub001/internal/template"

// Capture is the sample window that fills a Grid. It is not safe for
// concurrent use.
type Capture struct {
	cfg     Config
	grid    *Grid
	samples int
	active  bool
}

// NewCapture returns an inactive capture window.
func NewCapture(cfg Config) *Capture {
	return &Capture{cfg: cfg}
}

// Config returns the window configuration.
func (c *Capture) Config() Config { return c.cfg }

// Start opens a fresh window: a cleared grid and a zero sample counter.
func (c *Capture) Start() {
	if c.grid == nil || c.grid.Size != c.cfg.GridSize {
		c.grid = NewGrid(c.cfg.GridSize)
	} else {
		c.grid.Reset()
	}
	c.samples = 0
	c.active = true
}

// Stop abandons the window and discards the grid.
func (c *Capture) Stop() {
	c.active = false
	c.grid = nil
	c.samples = 0
}

// Active reports whether the window is accepting samples.
func (c *Capture) Active() bool { return c.active }

// Samples returns the number of points counted in the current window.
func (c *Capture) Samples() int { return c.samples }

// Add marks the cell containing p. counted is false for points outside
// the grid, which do not advance the window. done is true on the sample
// that closes the window; the grid is then ready for Take.
func (c *Capture) Add(p template.Point) (counted, done bool) {
	if !c.active {
		return false, false
	}
	if !c.grid.Mark(p) {
		return false, false
	}
	c.samples++
	if c.samples >= c.cfg.SampleCount {
		c.active = false
		return true, true
	}
	return true, false
}

// Take hands the filled grid to the caller and forgets it. It returns nil
// while the window is still open or after Stop.
func (c *Capture) Take() *Grid {
	if c.active {
		return nil
	}
	g := c.grid
	c.grid = nil
	return g
}
