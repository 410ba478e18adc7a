package game

import "fmt"

// turnLog collects the events of one turn in emission order.
type turnLog struct {
	events []Event
}

func (t *turnLog) add(typ, message string, data map[string]any) {
	t.events = append(t.events, newEvent(typ, message, data))
}

func (t *turnLog) has(typ string) bool {
	for _, ev := range t.events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

// Move processes one movement intent: melee if the destination holds a live
// enemy, otherwise step, pick up, maybe descend, then fog and enemy AI.
// Rule outcomes are events, never errors.
func (e *Engine) Move(gs *GameState, dir Direction) ([]Event, error) {
	if gs.Status != StatusActive {
		return nil, nil
	}
	t := &turnLog{}

	dx, dy := dir.Delta()
	nx, ny := gs.Player.X+dx, gs.Player.Y+dy

	// Facing flips on horizontal intents even when the step is blocked.
	switch dir {
	case DirLeft:
		gs.Player.Facing = FacingLeft
	case DirRight:
		gs.Player.Facing = FacingRight
	}

	if !InBounds(nx, ny) || gs.Map[ny][nx].Blocks() {
		// Bumping a wall does not advance the turn: no events, no enemy AI.
		return t.events, nil
	}

	if enemy := gs.EnemyAt(nx, ny); enemy != nil {
		e.meleeAttack(gs, enemy, t)
	} else {
		gs.Player.X, gs.Player.Y = nx, ny
		t.add(EvPlayerMoved, fmt.Sprintf("You move %s", dir), map[string]any{"x": nx, "y": ny})
		e.pickupItem(gs, t)
		if gs.Map[ny][nx].Kind == TileStairs {
			// Descend replaces the floor and short-circuits the turn.
			if err := e.descend(gs, t); err != nil {
				return t.events, err
			}
			return t.events, nil
		}
	}

	UpdateFog(gs)
	e.runEnemyAI(gs, t)
	return t.events, e.checkInvariants(gs, t)
}

// Attack processes one ranged-attack intent.
func (e *Engine) Attack(gs *GameState) ([]Event, error) {
	if gs.Status != StatusActive {
		return nil, nil
	}
	t := &turnLog{}
	e.rangedAttack(gs, t)
	UpdateFog(gs)
	e.runEnemyAI(gs, t)
	return t.events, e.checkInvariants(gs, t)
}

// Descend processes an explicit descend intent. It only fires when the
// player already stands on stairs; stepping onto stairs descends on its own.
func (e *Engine) Descend(gs *GameState) ([]Event, error) {
	if gs.Status != StatusActive {
		return nil, nil
	}
	if gs.Map[gs.Player.Y][gs.Player.X].Kind != TileStairs {
		return nil, fmt.Errorf("player is not standing on stairs")
	}
	t := &turnLog{}
	if err := e.descend(gs, t); err != nil {
		return t.events, err
	}
	return t.events, nil
}

// descend advances to the next floor. Enemy AI does not run on this turn.
func (e *Engine) descend(gs *GameState, t *turnLog) error {
	gs.Floor++
	floor, err := e.generateFloor(gs.Floor, gs.Player.Character)
	if err != nil {
		gs.Floor--
		return err
	}
	e.installFloor(gs, floor)
	UpdateFog(gs)
	gs.Score += 100
	t.add(EvFloorDescended,
		fmt.Sprintf("You descend to floor %d", gs.Floor),
		map[string]any{"floor": gs.Floor})

	if gs.Floor >= FinalFloor {
		gs.Status = StatusWon
		gs.Score += 1000
		t.add(EvGameWon, "You have conquered the dungeon", map[string]any{"score": gs.Score})
	}
	return nil
}

// checkInvariants guards against data corruption after a turn. A violation
// fails the turn so the corrupt state is never checkpointed.
func (e *Engine) checkInvariants(gs *GameState, t *turnLog) error {
	p := gs.Player
	if !InBounds(p.X, p.Y) || gs.Map[p.Y][p.X].Blocks() {
		return fmt.Errorf("player inside a wall at (%d,%d)", p.X, p.Y)
	}
	if p.HP < 0 || p.HP > p.MaxHP {
		return fmt.Errorf("player hp %d outside [0,%d]", p.HP, p.MaxHP)
	}
	if (gs.Status == StatusDead) != (p.HP <= 0) {
		return fmt.Errorf("status %q inconsistent with hp %d", gs.Status, p.HP)
	}
	if gs.Status == StatusDead && !t.has(EvPlayerDied) {
		return fmt.Errorf("player died without a death event")
	}
	if gs.Status == StatusActive && p.XP >= p.XPToNextLevel {
		return fmt.Errorf("xp %d not consumed below threshold %d", p.XP, p.XPToNextLevel)
	}
	seen := make(map[Point]string, len(gs.Enemies))
	for _, en := range gs.Enemies {
		if !en.Alive() {
			continue
		}
		if en.HP > en.MaxHP {
			return fmt.Errorf("enemy %s hp %d above max %d", en.ID, en.HP, en.MaxHP)
		}
		at := Point{X: en.X, Y: en.Y}
		if other, dup := seen[at]; dup {
			return fmt.Errorf("enemies %s and %s share (%d,%d)", other, en.ID, en.X, en.Y)
		}
		seen[at] = en.ID
		if en.X == p.X && en.Y == p.Y {
			return fmt.Errorf("enemy %s shares the player's tile", en.ID)
		}
	}
	return nil
}
