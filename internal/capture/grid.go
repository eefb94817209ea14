package capture

import "github.com/rjdini/jaer-sub001/internal/template"

// Grid is a square boolean occupancy raster covering [-1,1]² in
// normalised template coordinates. Cell (0,0) holds the most negative
// x and y.
type Grid struct {
	Size  int
	cells []bool
	count int
}

// NewGrid returns an empty grid with size cells per side.
func NewGrid(size int) *Grid {
	if size < 1 {
		size = 1
	}
	return &Grid{Size: size, cells: make([]bool, size*size)}
}

// Cell returns the cell containing p. ok is false when p lies outside
// [-1,1]² or is not finite.
func (g *Grid) Cell(p template.Point) (x, y int, ok bool) {
	if !(p.X >= -1 && p.X <= 1 && p.Y >= -1 && p.Y <= 1) {
		return 0, 0, false
	}
	x = int((p.X + 1) * float64(g.Size) / 2)
	y = int((p.Y + 1) * float64(g.Size) / 2)
	// The upper edge belongs to the last cell.
	if x == g.Size {
		x--
	}
	if y == g.Size {
		y--
	}
	return x, y, true
}

// Center returns the normalised coordinates of the middle of cell (x, y).
func (g *Grid) Center(x, y int) template.Point {
	s := float64(g.Size)
	return template.Point{
		X: (2*float64(x)+1)/s - 1,
		Y: (2*float64(y)+1)/s - 1,
	}
}

// Mark sets the cell containing p. It reports false for points outside
// the grid.
func (g *Grid) Mark(p template.Point) bool {
	x, y, ok := g.Cell(p)
	if !ok {
		return false
	}
	g.Set(x, y)
	return true
}

// Set marks cell (x, y) occupied. Out-of-range cells are ignored.
func (g *Grid) Set(x, y int) {
	if !g.inBounds(x, y) {
		return
	}
	i := y*g.Size + x
	if !g.cells[i] {
		g.cells[i] = true
		g.count++
	}
}

// Occupied reports whether cell (x, y) is set. Cells outside the grid
// are never occupied.
func (g *Grid) Occupied(x, y int) bool {
	return g.inBounds(x, y) && g.cells[y*g.Size+x]
}

// Clear unsets cell (x, y).
func (g *Grid) Clear(x, y int) {
	if !g.inBounds(x, y) {
		return
	}
	i := y*g.Size + x
	if g.cells[i] {
		g.cells[i] = false
		g.count--
	}
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int { return g.count }

// Reset clears every cell.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = false
	}
	g.count = 0
}

// Points returns the centres of all occupied cells in row-major order.
func (g *Grid) Points() []template.Point {
	pts := make([]template.Point, 0, g.count)
	for y := 0; y < g.Size; y++ {
		for x := 0; x < g.Size; x++ {
			if g.cells[y*g.Size+x] {
				pts = append(pts, g.Center(x, y))
			}
		}
	}
	return pts
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Size && y < g.Size
}
