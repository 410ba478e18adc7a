package game

import (
	"testing"

	"github.com/deepfall/server/internal/data"
	"go.uber.org/zap"
)

func testEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	tables, err := data.Load()
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	return NewEngine(tables, seed, zap.NewNop())
}

// flatState builds an open arena: wall border, floor interior, player at
// (5,5). Tests carve walls or drop enemies and items as needed.
func flatState() *GameState {
	tiles := make(Map, MapHeight)
	for y := 0; y < MapHeight; y++ {
		tiles[y] = make([]Tile, MapWidth)
		for x := 0; x < MapWidth; x++ {
			kind := TileFloor
			if x == 0 || y == 0 || x == MapWidth-1 || y == MapHeight-1 {
				kind = TileWall
			}
			tiles[y][x] = Tile{Kind: kind, X: x, Y: y}
		}
	}
	return &GameState{
		ID:         "test-game",
		PlayerName: "Tester",
		Floor:      1,
		Status:     StatusActive,
		Map:        tiles,
		Fog:        newFog(),
		Player: Player{
			X: 5, Y: 5,
			HP: 25, MaxHP: 25,
			Attack: 10, Defense: 2,
			Level: 1, XPToNextLevel: 50,
			RangedDamage: 7, RangedRange: 4,
			Character: "wizard",
			Facing:    FacingRight,
		},
	}
}

func setWall(gs *GameState, x, y int) {
	gs.Map[y][x] = Tile{Kind: TileWall, X: x, Y: y}
}

func addEnemy(gs *GameState, id string, x, y int, behavior Behavior) *Enemy {
	e := &Enemy{
		ID: id, Type: "rat", Variant: VariantNormal, DisplayName: "Rat",
		X: x, Y: y,
		HP: 6, MaxHP: 6, Attack: 4, Defense: 0,
		XP: 8, Score: 10,
		Behavior: behavior,
	}
	gs.Enemies = append(gs.Enemies, e)
	return e
}

func addItem(gs *GameState, id string, kind ItemKind, x, y, value int, eq *Equipment) *Item {
	it := &Item{ID: id, Kind: kind, X: x, Y: y, Value: value, Equipment: eq}
	gs.Items = append(gs.Items, it)
	return it
}

func eventTypes(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func hasEvent(events []Event, typ string) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func findEvent(t *testing.T, events []Event, typ string) Event {
	t.Helper()
	for _, ev := range events {
		if ev.Type == typ {
			return ev
		}
	}
	t.Fatalf("expected %s event, got %v", typ, eventTypes(events))
	return Event{}
}
