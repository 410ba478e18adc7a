package game

import "testing"

func TestNextStepStraightLine(t *testing.T) {
	gs := flatState()
	step, ok := NextStep(gs, 10, 10, 14, 10, MaxPathDistance)
	if !ok {
		t.Fatal("expected a path")
	}
	if step != (Point{X: 11, Y: 10}) {
		t.Errorf("expected (11,10), got (%d,%d)", step.X, step.Y)
	}
}

func TestNextStepTieBreakPrefersUp(t *testing.T) {
	gs := flatState()
	// Diagonal target: up and right give equally short paths; the fixed
	// neighbor order must pick up.
	step, ok := NextStep(gs, 10, 10, 12, 8, MaxPathDistance)
	if !ok {
		t.Fatal("expected a path")
	}
	if step != (Point{X: 10, Y: 9}) {
		t.Errorf("expected the up step (10,9), got (%d,%d)", step.X, step.Y)
	}
}

func TestNextStepWalledOff(t *testing.T) {
	gs := flatState()
	// Box in the target completely.
	for _, p := range []Point{{19, 9}, {21, 9}, {19, 10}, {21, 10}, {19, 11}, {20, 9}, {20, 11}, {21, 11}} {
		setWall(gs, p.X, p.Y)
	}
	if _, ok := NextStep(gs, 5, 10, 20, 10, MaxPathDistance); ok {
		t.Error("expected no path into a sealed box")
	}
}

func TestNextStepDistanceBound(t *testing.T) {
	gs := flatState()
	if _, ok := NextStep(gs, 2, 2, 30, 2, MaxPathDistance); ok {
		t.Error("a 28-step path must exceed the 20-step bound")
	}
	if _, ok := NextStep(gs, 2, 2, 22, 2, MaxPathDistance); !ok {
		t.Error("a 20-step path is within the bound")
	}
}

func TestNextStepAvoidsEnemiesAndPlayer(t *testing.T) {
	gs := flatState()
	gs.Player.X, gs.Player.Y = 11, 10
	addEnemy(gs, "blocker", 11, 11, BehaviorStationary)

	// From (10,10) to (12,11): both direct corners are occupied, so the
	// path must route around, and its first step cannot enter either.
	step, ok := NextStep(gs, 10, 10, 12, 11, MaxPathDistance)
	if !ok {
		t.Fatal("expected a detour path")
	}
	if step == (Point{X: 11, Y: 10}) || step == (Point{X: 11, Y: 11}) {
		t.Errorf("step (%d,%d) enters an occupied cell", step.X, step.Y)
	}
}

func TestNextStepPlayerCellAsTarget(t *testing.T) {
	gs := flatState()
	gs.Player.X, gs.Player.Y = 12, 10
	step, ok := NextStep(gs, 10, 10, 12, 10, MaxPathDistance)
	if !ok {
		t.Fatal("the player's cell is a legal terminal target")
	}
	if step != (Point{X: 11, Y: 10}) {
		t.Errorf("expected (11,10), got (%d,%d)", step.X, step.Y)
	}
}

func TestNextStepSameCell(t *testing.T) {
	gs := flatState()
	if _, ok := NextStep(gs, 10, 10, 10, 10, MaxPathDistance); ok {
		t.Error("no step needed when already at the target")
	}
}
