package game

import "testing"

func TestAggressiveChaseThroughCorridor(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()

	// Straight corridor at y=5 from x=2..6, plus the cell the player
	// steps into. Everything else is rock.
	for y := 0; y < MapHeight; y++ {
		for x := 0; x < MapWidth; x++ {
			setWall(gs, x, y)
		}
	}
	for x := 2; x <= 6; x++ {
		gs.Map[5][x] = Tile{Kind: TileFloor, X: x, Y: 5}
	}
	gs.Map[6][5] = Tile{Kind: TileFloor, X: 5, Y: 6}

	orc := addEnemy(gs, "orc-1", 3, 5, BehaviorAggressive)
	orc.HP, orc.MaxHP = 25, 25
	UpdateFog(gs)

	events, err := e.Move(gs, DirDown)
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	if gs.Player.X != 5 || gs.Player.Y != 6 {
		t.Errorf("player at (%d,%d), want (5,6)", gs.Player.X, gs.Player.Y)
	}
	if orc.X != 4 || orc.Y != 5 {
		t.Errorf("orc at (%d,%d), want (4,5)", orc.X, orc.Y)
	}
	if !hasEvent(events, EvPlayerMoved) {
		t.Error("expected player_moved")
	}
	if hasEvent(events, EvPlayerDamaged) {
		t.Error("orc is not adjacent yet, no attack expected")
	}
}

func TestAggressiveAttacksWhenAdjacent(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	en := addEnemy(gs, "rat-1", 6, 6, BehaviorAggressive)
	en.Attack = 4
	UpdateFog(gs)

	// Move down: player to (5,6), rat now adjacent and strikes this tick
	// after stepping, or immediately if already orthogonal.
	events, err := e.Move(gs, DirDown)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !hasEvent(events, EvPlayerDamaged) {
		t.Fatalf("expected player_damaged, got %v", eventTypes(events))
	}
	if gs.Player.HP != 25-2 { // max(1, 4 attack - 2 defense)
		t.Errorf("expected hp 23, got %d", gs.Player.HP)
	}
}

func TestAggressiveChasesLastSeenPosition(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	// Wall line with a gap the player hides behind.
	for y := 1; y < MapHeight-1; y++ {
		if y != 10 {
			setWall(gs, 10, y)
		}
	}
	gs.Player.X, gs.Player.Y = 9, 10
	en := addEnemy(gs, "orc-1", 13, 10, BehaviorAggressive)
	en.HP, en.MaxHP = 25, 25
	UpdateFog(gs)

	// Turn 1: the orc sees the player through the gap and remembers it.
	if _, err := e.Attack(gs); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if en.LastSeenPlayer == nil {
		t.Fatal("orc should remember the sighting")
	}

	// Player steps out of the line of sight; the orc keeps closing in on
	// the remembered cell.
	if _, err := e.Move(gs, DirUp); err != nil {
		t.Fatalf("move: %v", err)
	}
	if en.X == 13 && en.Y == 10 {
		t.Error("orc should keep moving toward the last sighting")
	}
}

func TestFleeWhenBadlyHurt(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	// Off the firing line so the ranged turn itself cannot touch it.
	rat := addEnemy(gs, "rat-1", 7, 6, BehaviorFlee)
	rat.HP = 1 // 1/6 is under the 30% threshold
	UpdateFog(gs)

	if _, err := e.Attack(gs); err != nil {
		t.Fatalf("attack: %v", err)
	}
	// Horizontal opposite first: away from the player means +x.
	if rat.X != 8 || rat.Y != 6 {
		t.Errorf("rat at (%d,%d), want (8,6)", rat.X, rat.Y)
	}
}

func TestFleeHealthyActsAggressive(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	rat := addEnemy(gs, "rat-1", 6, 5, BehaviorFlee)
	UpdateFog(gs)

	events, err := e.Move(gs, DirUp) // step away; rat is at full health
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	// Full-health flee behavior falls through to aggressive: the rat
	// closes in rather than running.
	if manhattan(rat.X, rat.Y, gs.Player.X, gs.Player.Y) >= 2 && !hasEvent(events, EvPlayerDamaged) {
		t.Errorf("healthy rat should chase, still at (%d,%d)", rat.X, rat.Y)
	}
}

func TestStationaryOnlyAttacksAdjacent(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	far := addEnemy(gs, "far", 8, 5, BehaviorStationary)
	near := addEnemy(gs, "near", 4, 5, BehaviorStationary)
	near.Attack = 4
	UpdateFog(gs)

	events, err := e.Attack(gs)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	if far.X != 8 || far.Y != 5 {
		t.Error("stationary enemy must not move")
	}
	if !hasEvent(events, EvPlayerDamaged) {
		t.Error("adjacent stationary enemy must strike")
	}
}

func TestPatrolNeedsLineOfSight(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	for y := 1; y < MapHeight-1; y++ {
		setWall(gs, 8, y)
	}
	en := addEnemy(gs, "skel-1", 10, 5, BehaviorPatrol)
	UpdateFog(gs)

	if _, err := e.Attack(gs); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if en.X != 10 || en.Y != 5 {
		t.Errorf("patrol without sight must hold position, at (%d,%d)", en.X, en.Y)
	}
}

func TestEnemiesBeyondVisionPlusTwoSkip(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	en := addEnemy(gs, "orc-1", 5+VisionRadius+3, 5, BehaviorAggressive)
	UpdateFog(gs)

	if _, err := e.Attack(gs); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if en.X != 5+VisionRadius+3 {
		t.Error("enemy outside the activation radius must not act")
	}
}

func TestPathfindBudgetLimitsMovers(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.X, gs.Player.Y = 20, 12
	UpdateFog(gs)

	// Seven chasers inside the activation radius, none adjacent. Only the
	// five closest get a pathfinder slot this turn.
	spots := []Point{
		{22, 12}, {20, 14}, {18, 12}, {20, 10},
		{23, 12}, {20, 15}, {17, 12},
	}
	for i, p := range spots {
		en := addEnemy(gs, string(rune('a'+i)), p.X, p.Y, BehaviorAggressive)
		en.HP, en.MaxHP = 25, 25
	}
	UpdateFog(gs)

	if _, err := e.Attack(gs); err != nil {
		t.Fatalf("attack: %v", err)
	}

	moved := 0
	for i, en := range gs.Enemies {
		if en.X != spots[i].X || en.Y != spots[i].Y {
			moved++
		}
	}
	if moved != PathfindBudget {
		t.Errorf("expected %d movers, got %d", PathfindBudget, moved)
	}
}
