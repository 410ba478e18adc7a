package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/deepfall/server/internal/data"
	"go.uber.org/zap"
)

// Engine owns the game rules. It is shared by every session; all per-game
// state lives in GameState, so methods are safe to call from any goroutine
// as long as a single game's turns are serialised by the caller.
type Engine struct {
	tables *data.Tables
	rng    *lockedRand
	log    *zap.Logger
}

func NewEngine(tables *data.Tables, seed int64, log *zap.Logger) *Engine {
	return &Engine{
		tables: tables,
		rng:    &lockedRand{r: rand.New(rand.NewSource(seed))},
		log:    log,
	}
}

// NewGame creates a fresh floor-1 game for the given class.
func (e *Engine) NewGame(id, playerName, character string) (*GameState, error) {
	class, ok := e.tables.Class(character)
	if !ok {
		return nil, fmt.Errorf("unknown character class %q", character)
	}

	gs := &GameState{
		ID:         id,
		PlayerName: playerName,
		Floor:      1,
		Status:     StatusActive,
		Player: Player{
			HP:            class.HP,
			MaxHP:         class.HP,
			Attack:        class.Attack,
			Defense:       class.Defense,
			Level:         1,
			XPToNextLevel: xpToNextLevel(1),
			RangedDamage:  class.RangedDamage,
			RangedRange:   class.RangedRange,
			Character:     character,
			Facing:        FacingRight,
		},
	}

	floor, err := e.generateFloor(1, character)
	if err != nil {
		return nil, err
	}
	e.installFloor(gs, floor)
	UpdateFog(gs)
	return gs, nil
}

// installFloor swaps the per-floor state in place. The previous floor is
// discarded; there is no backtracking.
func (e *Engine) installFloor(gs *GameState, f *floorLayout) {
	gs.Map = f.tiles
	gs.Enemies = f.enemies
	gs.Items = f.items
	gs.Fog = newFog()
	gs.Player.X = f.playerStart.X
	gs.Player.Y = f.playerStart.Y
}

func newFog() Fog {
	fog := make(Fog, MapHeight)
	for y := range fog {
		fog[y] = make([]bool, MapWidth)
	}
	return fog
}

func xpToNextLevel(level int) int { return level * 50 }

// lockedRand guards a seeded source shared across session goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// intIn returns a uniform value in [lo, hi] inclusive.
func (l *lockedRand) intIn(lo, hi int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hi <= lo {
		return lo
	}
	return lo + l.r.Intn(hi-lo+1)
}

func (l *lockedRand) intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}
