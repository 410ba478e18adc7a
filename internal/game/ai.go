package game

import "sort"

// fleeThreshold: flee-behavior enemies run once below 30% health.
const fleeThreshold = 0.3

// runEnemyAI gives every nearby enemy one action after the player's turn.
// Enemies act in ascending distance order; at most PathfindBudget of them
// may invoke the pathfinder, so the closest threats keep intelligent
// movement on crowded floors. A fatal strike stops processing immediately.
func (e *Engine) runEnemyAI(gs *GameState, t *turnLog) {
	if gs.Status != StatusActive {
		return
	}
	px, py := gs.Player.X, gs.Player.Y

	order := make([]*Enemy, 0, len(gs.Enemies))
	for _, en := range gs.Enemies {
		if en.Alive() {
			order = append(order, en)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return manhattan(order[i].X, order[i].Y, px, py) < manhattan(order[j].X, order[j].Y, px, py)
	})

	budget := PathfindBudget
	for _, en := range order {
		if !en.Alive() {
			continue
		}
		dist := manhattan(en.X, en.Y, px, py)
		if dist > VisionRadius+2 {
			continue
		}
		canSee := HasLineOfSight(gs, en.X, en.Y, px, py)
		if canSee {
			en.LastSeenPlayer = &Point{X: px, Y: py}
		}

		var fatal bool
		switch en.Behavior {
		case BehaviorStationary:
			if dist == 1 {
				fatal = e.enemyStrike(gs, en, t)
			}
		case BehaviorPatrol:
			if canSee {
				if dist == 1 {
					fatal = e.enemyStrike(gs, en, t)
				} else {
					e.chaseStepTo(gs, en, px, py, &budget)
				}
			}
		case BehaviorFlee:
			if canSee && float64(en.HP) < fleeThreshold*float64(en.MaxHP) {
				e.fleeStep(gs, en, px, py)
			} else {
				fatal = e.aggressiveAct(gs, en, canSee, dist, px, py, &budget, t)
			}
		case BehaviorAggressive:
			fatal = e.aggressiveAct(gs, en, canSee, dist, px, py, &budget, t)
		}
		if fatal {
			return
		}
	}
}

// aggressiveAct chases the player, or the last place the player was seen.
func (e *Engine) aggressiveAct(gs *GameState, en *Enemy, canSee bool, dist, px, py int, budget *int, t *turnLog) bool {
	tx, ty := px, py
	if !canSee {
		if en.LastSeenPlayer == nil {
			return false
		}
		tx, ty = en.LastSeenPlayer.X, en.LastSeenPlayer.Y
	}

	if dist == 1 {
		return e.enemyStrike(gs, en, t)
	}

	if e.chaseStepTo(gs, en, tx, ty, budget) {
		if manhattan(en.X, en.Y, px, py) == 1 {
			return e.enemyStrike(gs, en, t)
		}
	}
	// Reaching a stale sighting without spotting the player clears it.
	if !canSee && en.LastSeenPlayer != nil && en.X == tx && en.Y == ty {
		en.LastSeenPlayer = nil
	}
	return false
}

// chaseStepTo moves one BFS step toward a target cell, respecting the
// per-turn pathfinder budget.
func (e *Engine) chaseStepTo(gs *GameState, en *Enemy, tx, ty int, budget *int) bool {
	if *budget <= 0 {
		return false
	}
	*budget--
	step, ok := NextStep(gs, en.X, en.Y, tx, ty, MaxPathDistance)
	if !ok {
		return false
	}
	if !e.cellFree(gs, step.X, step.Y) {
		return false
	}
	en.X, en.Y = step.X, step.Y
	return true
}

// fleeStep backs one cell away, horizontal opposite first.
func (e *Engine) fleeStep(gs *GameState, en *Enemy, px, py int) {
	var tries []Point
	if en.X != px {
		dx := 1
		if en.X < px {
			dx = -1
		}
		tries = append(tries, Point{X: en.X + dx, Y: en.Y})
	}
	if en.Y != py {
		dy := 1
		if en.Y < py {
			dy = -1
		}
		tries = append(tries, Point{X: en.X, Y: en.Y + dy})
	}
	for _, p := range tries {
		if e.cellFree(gs, p.X, p.Y) {
			en.X, en.Y = p.X, p.Y
			return
		}
	}
}

// cellFree reports whether an enemy may occupy the cell.
func (e *Engine) cellFree(gs *GameState, x, y int) bool {
	if !InBounds(x, y) || gs.Map[y][x].Blocks() {
		return false
	}
	if gs.Player.X == x && gs.Player.Y == y {
		return false
	}
	return gs.EnemyAt(x, y) == nil
}
