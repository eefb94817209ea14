package capture

import (
	"math"

	"github.com/rjdini/jaer-sub001/internal/template"
)

// Candidate is one scored ray: an anchor cell, an angle index into
// [0, π) and the steps of the ray that landed on occupied cells.
type Candidate struct {
	AnchorX, AnchorY int
	AngleIndex       int
	Hits             int     // Steps with an occupied cell in the band
	First, Last      int     // Step indices of the first and last hit, -1 when Hits is 0
	Score            float64 // Hits / RayLength

	// Occupied cells nearest the ray at the first and last hit.
	FirstX, FirstY int
	LastX, LastY   int
}

// direction is the precomputed stepping rule for one angle. The major
// axis advances one cell per step; the minor axis accumulates slope.
type direction struct {
	xMajor bool
	major  int     // +1 or -1 along the major axis
	slope  float64 // Minor-axis advance per step
	band   int     // Minor-axis cells either side covering the perpendicular half-width
}

// directions precomputes the stepping rule for each angle. The band is
// measured along the minor axis, so a perpendicular half-width h needs
// ceil(h·sqrt(1+slope²)) cells.
func directions(steps, halfWidth int) []direction {
	dirs := make([]direction, steps)
	for k := range dirs {
		theta := float64(k) * math.Pi / float64(steps)
		dx, dy := math.Cos(theta), math.Sin(theta)
		var d direction
		if math.Abs(dx) >= math.Abs(dy) {
			d = direction{xMajor: true, major: sign(dx), slope: dy / math.Abs(dx)}
		} else {
			d = direction{xMajor: false, major: sign(dy), slope: dx / math.Abs(dy)}
		}
		d.band = int(math.Ceil(float64(halfWidth) * math.Sqrt(1+d.slope*d.slope)))
		dirs[k] = d
	}
	return dirs
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// cellAt returns the ray cell at step n. The minor offset is rebuilt
// from the accumulated fractional advance.
func (d direction) cellAt(ax, ay, n int, acc float64) (x, y int) {
	off := int(math.Round(acc))
	if d.xMajor {
		return ax + n*d.major, ay + off
	}
	return ax + off, ay + n*d.major
}

// bandHit returns the occupied cell across the band at (x, y) nearest
// the ray. Equal offsets prefer the negative side.
func (d direction) bandHit(g *Grid, x, y int) (hx, hy int, ok bool) {
	for a := 0; a <= d.band; a++ {
		for _, b := range [2]int{-a, a} {
			hx, hy = x, y+b
			if !d.xMajor {
				hx, hy = x+b, y
			}
			if g.Occupied(hx, hy) {
				return hx, hy, true
			}
			if a == 0 {
				break
			}
		}
	}
	return 0, 0, false
}

// clearBand unsets every band cell at ray step (x, y).
func (d direction) clearBand(g *Grid, x, y int) {
	for b := -d.band; b <= d.band; b++ {
		if d.xMajor {
			g.Clear(x, y+b)
		} else {
			g.Clear(x+b, y)
		}
	}
}

// score walks one ray without touching the grid.
func score(g *Grid, cfg Config, d direction, ax, ay, k int) Candidate {
	c := Candidate{AnchorX: ax, AnchorY: ay, AngleIndex: k, First: -1, Last: -1}
	acc := 0.0
	for n := 0; n < cfg.RayLength; n++ {
		x, y := d.cellAt(ax, ay, n, acc)
		if hx, hy, ok := d.bandHit(g, x, y); ok {
			if c.First < 0 {
				c.First = n
				c.FirstX, c.FirstY = hx, hy
			}
			c.Last = n
			c.LastX, c.LastY = hx, hy
			c.Hits++
		}
		acc += d.slope
	}
	c.Score = float64(c.Hits) / float64(cfg.RayLength)
	return c
}

// consume clears every band cell along an accepted ray and returns the
// segment between the occupied cells of its first and last hit. A run
// that reaches either end of the ray window is followed past it, step by
// step, until the band comes up empty.
func consume(g *Grid, cfg Config, d direction, c Candidate) template.LineSegment {
	acc := 0.0
	for n := 0; n < cfg.RayLength; n++ {
		x, y := d.cellAt(c.AnchorX, c.AnchorY, n, acc)
		d.clearBand(g, x, y)
		acc += d.slope
	}

	fx, fy, lx, ly := c.FirstX, c.FirstY, c.LastX, c.LastY
	if c.Last == cfg.RayLength-1 {
		for n := cfg.RayLength; ; n++ {
			x, y := d.cellAt(c.AnchorX, c.AnchorY, n, acc)
			hx, hy, ok := d.bandHit(g, x, y)
			if !ok {
				break
			}
			lx, ly = hx, hy
			d.clearBand(g, x, y)
			acc += d.slope
		}
	}
	if c.First == 0 {
		acc = -d.slope
		for n := -1; ; n-- {
			x, y := d.cellAt(c.AnchorX, c.AnchorY, n, acc)
			hx, hy, ok := d.bandHit(g, x, y)
			if !ok {
				break
			}
			fx, fy = hx, hy
			d.clearBand(g, x, y)
			acc -= d.slope
		}
	}

	start, end := g.Center(fx, fy), g.Center(lx, ly)
	return template.NewLineSegment(start.X, start.Y, end.X, end.Y)
}

// Synthesize extracts straight runs from g. Anchors are visited in
// row-major order on the stride lattice; at each anchor every angle is
// scored first and only the best candidate, if its score exceeds
// AcceptFraction, clears its cells and becomes a segment. The grid is
// consumed. An empty or featureless grid yields an empty result.
func Synthesize(g *Grid, cfg Config) []template.LineSegment {
	if g == nil || g.Count() == 0 || cfg.RayLength < 1 || cfg.AngleSteps < 1 {
		return nil
	}
	stride := cfg.AnchorStride
	if stride < 1 {
		stride = 1
	}

	dirs := directions(cfg.AngleSteps, cfg.BandHalfWidth)
	cands := make([]Candidate, len(dirs))
	var out []template.LineSegment

	for ay := 0; ay < g.Size; ay += stride {
		for ax := 0; ax < g.Size; ax += stride {
			if cfg.MaxSegments > 0 && len(out) >= cfg.MaxSegments {
				return out
			}
			if g.Count() == 0 {
				return out
			}
			for k, d := range dirs {
				cands[k] = score(g, cfg, d, ax, ay, k)
			}
			best := bestCandidate(cands)
			if best.Score <= cfg.AcceptFraction || best.First == best.Last {
				continue
			}
			out = append(out, consume(g, cfg, dirs[best.AngleIndex], best))
		}
	}
	return out
}

// bestCandidate returns the highest-scoring candidate; ties keep the
// lowest angle index.
func bestCandidate(cands []Candidate) Candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best
}
