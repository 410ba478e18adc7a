package game

// UpdateFog marks every cell within the vision radius of the player as
// explored. Fog is monotone: cells never flip back within a floor.
// Returns the newly revealed cells so the delta engine can emit them
// without re-diffing the whole grid.
func UpdateFog(gs *GameState) []Point {
	var revealed []Point
	px, py := gs.Player.X, gs.Player.Y
	r := VisionRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x, y := px+dx, py+dy
			if !InBounds(x, y) || gs.Fog[y][x] {
				continue
			}
			gs.Fog[y][x] = true
			revealed = append(revealed, Point{X: x, Y: y})
		}
	}
	return revealed
}

// HasLineOfSight walks Bresenham's line between the endpoints. Any wall hit
// after the start cell blocks the ray. The deadlock guard and iteration cap
// defend against malformed inputs.
func HasLineOfSight(gs *GameState, x1, y1, x2, y2 int) bool {
	if x1 == x2 && y1 == y2 {
		return true
	}

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	x, y := x1, y1
	for i := 0; i < MapWidth+MapHeight; i++ {
		if x == x2 && y == y2 {
			return true
		}
		px, py := x, y
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
		if x == px && y == py {
			return false // no progress
		}
		if x == x2 && y == y2 {
			return true
		}
		if gs.TileAt(x, y).Blocks() {
			return false
		}
	}
	return false
}

// VisibleEnemies returns live enemies standing on explored cells.
func (gs *GameState) VisibleEnemies() []*Enemy {
	var out []*Enemy
	for _, e := range gs.Enemies {
		if e.Alive() && gs.Revealed(e.X, e.Y) {
			out = append(out, e)
		}
	}
	return out
}

// VisibleItems returns items lying on explored cells.
func (gs *GameState) VisibleItems() []*Item {
	var out []*Item
	for _, it := range gs.Items {
		if gs.Revealed(it.X, it.Y) {
			out = append(out, it)
		}
	}
	return out
}

// VisibleTiles returns the tiles of every explored cell.
func (gs *GameState) VisibleTiles() []Tile {
	var out []Tile
	for y := 0; y < MapHeight; y++ {
		for x := 0; x < MapWidth; x++ {
			if gs.Fog[y][x] {
				out = append(out, gs.Map[y][x])
			}
		}
	}
	return out
}

// ExploredCells returns every fog-true cell.
func (gs *GameState) ExploredCells() []Point {
	var out []Point
	for y := 0; y < MapHeight; y++ {
		for x := 0; x < MapWidth; x++ {
			if gs.Fog[y][x] {
				out = append(out, Point{X: x, Y: y})
			}
		}
	}
	return out
}
