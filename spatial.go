package main

// SpatialCellSize is roughly 2x the default entity size so most colliders
// span at most four cells.
const SpatialCellSize = 128.0

// SpatialGrid is an incremental uniform grid for broad-phase collision
// queries. Colliders are registered into every cell their bounds overlap and
// must be re-registered with Update whenever their effective bounds change;
// a stale registration produces missed or phantom broad-phase candidates.
type SpatialGrid struct {
	cols  int
	rows  int
	cells [][]*Collider
}

// NewSpatialGrid creates a grid covering a width x height world.
func NewSpatialGrid(width, height float64) *SpatialGrid {
	cols := int(width/SpatialCellSize) + 1
	rows := int(height/SpatialCellSize) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &SpatialGrid{
		cols:  cols,
		rows:  rows,
		cells: make([][]*Collider, cols*rows),
	}
}

// cellSpan returns the clamped cell-coordinate span of a collider's bounds.
func (g *SpatialGrid) cellSpan(c *Collider) (minCX, minCY, maxCX, maxCY int) {
	minX, minY, maxX, maxY := c.BBox()
	minCX = int(minX / SpatialCellSize)
	maxCX = int(maxX / SpatialCellSize)
	minCY = int(minY / SpatialCellSize)
	maxCY = int(maxY / SpatialCellSize)
	if minCX < 0 {
		minCX = 0
	}
	if maxCX >= g.cols {
		maxCX = g.cols - 1
	}
	if minCY < 0 {
		minCY = 0
	}
	if maxCY >= g.rows {
		maxCY = g.rows - 1
	}
	return
}

// Insert registers a collider in every cell its bounds overlap.
func (g *SpatialGrid) Insert(c *Collider) {
	if c.indexed {
		return
	}
	minCX, minCY, maxCX, maxCY := g.cellSpan(c)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			g.cells[idx] = append(g.cells[idx], c)
		}
	}
	c.minCX, c.minCY, c.maxCX, c.maxCY = minCX, minCY, maxCX, maxCY
	c.indexed = true
}

// Remove deregisters a collider from all cells it was registered in.
func (g *SpatialGrid) Remove(c *Collider) {
	if !c.indexed {
		return
	}
	for cy := c.minCY; cy <= c.maxCY; cy++ {
		for cx := c.minCX; cx <= c.maxCX; cx++ {
			idx := cy*g.cols + cx
			cell := g.cells[idx]
			for i, other := range cell {
				if other == c {
					cell[i] = cell[len(cell)-1]
					g.cells[idx] = cell[:len(cell)-1]
					break
				}
			}
		}
	}
	c.indexed = false
}

// Update re-registers a moved or resized collider. Cheap when the collider
// stays within its previous cell span.
func (g *SpatialGrid) Update(c *Collider) {
	if !c.indexed {
		g.Insert(c)
		return
	}
	minCX, minCY, maxCX, maxCY := g.cellSpan(c)
	if minCX == c.minCX && minCY == c.minCY && maxCX == c.maxCX && maxCY == c.maxCY {
		return
	}
	g.Remove(c)
	g.Insert(c)
}

// PotentialsFor returns all registered colliders whose bounds may overlap the
// given collider's bounds (broad phase, deduplicated, includes the collider
// itself if registered).
func (g *SpatialGrid) PotentialsFor(c *Collider) []*Collider {
	minCX, minCY, maxCX, maxCY := g.cellSpan(c)
	var result []*Collider
	seen := make(map[*Collider]bool)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, other := range g.cells[cy*g.cols+cx] {
				if !seen[other] {
					seen[other] = true
					result = append(result, other)
				}
			}
		}
	}
	return result
}

// CheckCollision is the narrow-phase exact overlap test.
func (g *SpatialGrid) CheckCollision(a, b *Collider) bool {
	return Overlaps(a, b)
}

// Count returns the number of registered colliders.
func (g *SpatialGrid) Count() int {
	seen := make(map[*Collider]bool)
	for _, cell := range g.cells {
		for _, c := range cell {
			seen[c] = true
		}
	}
	return len(seen)
}
