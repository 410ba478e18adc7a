package game

// Fixed neighbor order gives deterministic tie-breaks.
var bfsNeighbors = [4]Point{
	{X: 0, Y: -1}, // up
	{X: 0, Y: 1},  // down
	{X: -1, Y: 0}, // left
	{X: 1, Y: 0},  // right
}

// NextStep runs a breadth-first search on the 4-connected grid and returns
// the first cell of the shortest path from (sx,sy) to (tx,ty). The target
// may be the player's cell (an attacker moving into range); every other cell
// must be free of walls, live enemies and the player. Paths longer than
// maxDistance are rejected, as is any search touching more than W*H cells.
func NextStep(gs *GameState, sx, sy, tx, ty, maxDistance int) (Point, bool) {
	if maxDistance <= 0 {
		maxDistance = MaxPathDistance
	}
	if sx == tx && sy == ty {
		return Point{}, false
	}

	type node struct {
		p    Point
		dist int
	}
	visited := make(map[Point]Point) // cell -> predecessor
	start := Point{X: sx, Y: sy}
	visited[start] = start
	queue := []node{{p: start}}
	budget := MapWidth * MapHeight

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= maxDistance {
			continue
		}
		for _, d := range bfsNeighbors {
			next := Point{X: cur.p.X + d.X, Y: cur.p.Y + d.Y}
			if _, seen := visited[next]; seen {
				continue
			}
			if !traversable(gs, next.X, next.Y, tx, ty) {
				continue
			}
			visited[next] = cur.p
			if next.X == tx && next.Y == ty {
				return firstStep(visited, start, next), true
			}
			queue = append(queue, node{p: next, dist: cur.dist + 1})
			budget--
			if budget <= 0 {
				return Point{}, false
			}
		}
	}
	return Point{}, false
}

func traversable(gs *GameState, x, y, tx, ty int) bool {
	if !InBounds(x, y) || gs.Map[y][x].Blocks() {
		return false
	}
	if x == tx && y == ty {
		return true // terminal step, may be the player
	}
	if gs.EnemyAt(x, y) != nil {
		return false
	}
	if gs.Player.X == x && gs.Player.Y == y {
		return false
	}
	return true
}

// firstStep walks predecessors back from the target to the cell adjacent to
// the start.
func firstStep(visited map[Point]Point, start, target Point) Point {
	cur := target
	for {
		prev := visited[cur]
		if prev == start {
			return cur
		}
		cur = prev
	}
}
