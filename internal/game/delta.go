package game

type DeltaKind string

const (
	DeltaPlayerPos       DeltaKind = "player_pos"
	DeltaPlayerStats     DeltaKind = "player_stats"
	DeltaPlayerEquipment DeltaKind = "player_equipment"
	DeltaScore           DeltaKind = "score"
	DeltaFloor           DeltaKind = "floor"
	DeltaEnemyVisible    DeltaKind = "enemy_visible"
	DeltaEnemyMoved      DeltaKind = "enemy_moved"
	DeltaEnemyDamaged    DeltaKind = "enemy_damaged"
	DeltaEnemyKilled     DeltaKind = "enemy_killed"
	DeltaEnemyHidden     DeltaKind = "enemy_hidden"
	DeltaItemVisible     DeltaKind = "item_visible"
	DeltaItemRemoved     DeltaKind = "item_removed"
	DeltaFogReveal       DeltaKind = "fog_reveal"
	DeltaTilesReveal     DeltaKind = "tiles_reveal"
	DeltaGameStatus      DeltaKind = "game_status"
	DeltaEvent           DeltaKind = "event"
	DeltaNewFloor        DeltaKind = "new_floor"
)

// PosPayload carries the player position and facing.
type PosPayload struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Facing Facing `json:"facing"`
}

// StatsPatch carries only the player stats that changed this turn.
type StatsPatch struct {
	HP            *int `json:"hp,omitempty"`
	MaxHP         *int `json:"maxHp,omitempty"`
	Attack        *int `json:"attack,omitempty"`
	Defense       *int `json:"defense,omitempty"`
	XP            *int `json:"xp,omitempty"`
	Level         *int `json:"level,omitempty"`
	XPToNextLevel *int `json:"xpToNextLevel,omitempty"`
}

// Delta is one tagged change record. Exactly the payload fields for its
// kind are set; everything else is omitted on the wire.
type Delta struct {
	Kind      DeltaKind     `json:"type"`
	Pos       *PosPayload   `json:"pos,omitempty"`
	Stats     *StatsPatch   `json:"stats,omitempty"`
	Equipment *Loadout      `json:"equipment,omitempty"`
	Score     *int          `json:"score,omitempty"`
	Floor     *int          `json:"floor,omitempty"`
	Enemy     *EnemyView    `json:"enemy,omitempty"`
	EnemyID   string        `json:"enemyId,omitempty"`
	Item      *Item         `json:"item,omitempty"`
	ItemID    string        `json:"itemId,omitempty"`
	Cells     []Point       `json:"cells,omitempty"`
	Tiles     []Tile        `json:"tiles,omitempty"`
	Status    Status        `json:"status,omitempty"`
	Event     *Event        `json:"event,omitempty"`
	State     *VisibleState `json:"state,omitempty"`
}

// MoveWithDeltas runs a move turn and diffs pre/post state.
func (e *Engine) MoveWithDeltas(gs *GameState, dir Direction) ([]Event, []Delta, error) {
	return e.withDeltas(gs, func() ([]Event, error) { return e.Move(gs, dir) })
}

// AttackWithDeltas runs a ranged-attack turn and diffs pre/post state.
func (e *Engine) AttackWithDeltas(gs *GameState) ([]Event, []Delta, error) {
	return e.withDeltas(gs, func() ([]Event, error) { return e.Attack(gs) })
}

// DescendWithDeltas runs an explicit descend turn and diffs pre/post state.
func (e *Engine) DescendWithDeltas(gs *GameState) ([]Event, []Delta, error) {
	return e.withDeltas(gs, func() ([]Event, error) { return e.Descend(gs) })
}

func (e *Engine) withDeltas(gs *GameState, run func() ([]Event, error)) ([]Event, []Delta, error) {
	snap := takeSnapshot(gs)
	events, err := run()
	if err != nil {
		return events, nil, err
	}
	return events, diffTurn(gs, snap, events), nil
}

type enemySnap struct {
	x, y, hp int
	visible  bool
}

type snapshot struct {
	px, py    int
	facing    Facing
	hp        int
	maxHP     int
	attack    int
	defense   int
	xp        int
	level     int
	xpToNext  int
	equipIDs  [4]string
	score     int
	floor     int
	fog       Fog
	enemies   map[string]enemySnap
	itemsSeen map[string]bool
}

var slotOrder = [4]Slot{SlotWeapon, SlotShield, SlotArmor, SlotRanged}

func equipID(e *Equipment) string {
	if e == nil {
		return ""
	}
	return e.ID
}

func takeSnapshot(gs *GameState) *snapshot {
	p := gs.Player
	s := &snapshot{
		px: p.X, py: p.Y, facing: p.Facing,
		hp: p.HP, maxHP: p.MaxHP, attack: p.Attack, defense: p.Defense,
		xp: p.XP, level: p.Level, xpToNext: p.XPToNextLevel,
		score: gs.Score, floor: gs.Floor,
		enemies:   make(map[string]enemySnap, len(gs.Enemies)),
		itemsSeen: make(map[string]bool, len(gs.Items)),
	}
	for i, slot := range slotOrder {
		s.equipIDs[i] = equipID(p.Equipment.Get(slot))
	}
	// The fog grid is under a kilobyte; a dense copy per turn is cheaper
	// than threading a reveal buffer through every call site.
	s.fog = make(Fog, MapHeight)
	for y := range gs.Fog {
		s.fog[y] = make([]bool, MapWidth)
		copy(s.fog[y], gs.Fog[y])
	}
	for _, en := range gs.Enemies {
		s.enemies[en.ID] = enemySnap{
			x: en.X, y: en.Y, hp: en.HP,
			visible: en.Alive() && gs.Revealed(en.X, en.Y),
		}
	}
	for _, it := range gs.Items {
		if gs.Revealed(it.X, it.Y) {
			s.itemsSeen[it.ID] = true
		}
	}
	return s
}

// diffTurn emits deltas in the fixed wire order: player, score, floor,
// fog+tiles, enemies, items, status, events, and finally new_floor on a
// descend (where the per-cell diff is meaningless and replaced wholesale).
func diffTurn(gs *GameState, snap *snapshot, events []Event) []Delta {
	var deltas []Delta
	p := gs.Player

	if p.X != snap.px || p.Y != snap.py || p.Facing != snap.facing {
		deltas = append(deltas, Delta{
			Kind: DeltaPlayerPos,
			Pos:  &PosPayload{X: p.X, Y: p.Y, Facing: p.Facing},
		})
	}

	if patch := statsPatch(p, snap); patch != nil {
		deltas = append(deltas, Delta{Kind: DeltaPlayerStats, Stats: patch})
	}

	equipChanged := false
	for i, slot := range slotOrder {
		if equipID(p.Equipment.Get(slot)) != snap.equipIDs[i] {
			equipChanged = true
			break
		}
	}
	if equipChanged {
		loadout := p.Equipment
		deltas = append(deltas, Delta{Kind: DeltaPlayerEquipment, Equipment: &loadout})
	}

	if gs.Score != snap.score {
		score := gs.Score
		deltas = append(deltas, Delta{Kind: DeltaScore, Score: &score})
	}
	if gs.Floor != snap.floor {
		floor := gs.Floor
		deltas = append(deltas, Delta{Kind: DeltaFloor, Floor: &floor})
	}

	descended := false
	for _, ev := range events {
		if ev.Type == EvFloorDescended {
			descended = true
			break
		}
	}

	if !descended {
		deltas = append(deltas, fogDeltas(gs, snap)...)
		deltas = append(deltas, enemyDeltas(gs, snap)...)
		deltas = append(deltas, itemDeltas(gs, snap, events)...)
	}

	if gs.Status != StatusActive {
		deltas = append(deltas, Delta{Kind: DeltaGameStatus, Status: gs.Status})
	}

	for i := range events {
		deltas = append(deltas, Delta{Kind: DeltaEvent, Event: &events[i]})
	}

	if descended {
		deltas = append(deltas, Delta{Kind: DeltaNewFloor, State: VisibleStateOf(gs)})
	}
	return deltas
}

func statsPatch(p Player, snap *snapshot) *StatsPatch {
	patch := &StatsPatch{}
	changed := false
	set := func(dst **int, now, was int) {
		if now != was {
			v := now
			*dst = &v
			changed = true
		}
	}
	set(&patch.HP, p.HP, snap.hp)
	set(&patch.MaxHP, p.MaxHP, snap.maxHP)
	set(&patch.Attack, p.Attack, snap.attack)
	set(&patch.Defense, p.Defense, snap.defense)
	set(&patch.XP, p.XP, snap.xp)
	set(&patch.Level, p.Level, snap.level)
	set(&patch.XPToNextLevel, p.XPToNextLevel, snap.xpToNext)
	if !changed {
		return nil
	}
	return patch
}

// fogDeltas pairs fog_reveal with tiles_reveal for the same cells, in that
// order.
func fogDeltas(gs *GameState, snap *snapshot) []Delta {
	var cells []Point
	for y := 0; y < MapHeight; y++ {
		for x := 0; x < MapWidth; x++ {
			if gs.Fog[y][x] && !snap.fog[y][x] {
				cells = append(cells, Point{X: x, Y: y})
			}
		}
	}
	if len(cells) == 0 {
		return nil
	}
	tiles := make([]Tile, len(cells))
	for i, c := range cells {
		tiles[i] = gs.Map[c.Y][c.X]
	}
	return []Delta{
		{Kind: DeltaFogReveal, Cells: cells},
		{Kind: DeltaTilesReveal, Tiles: tiles},
	}
}

func enemyDeltas(gs *GameState, snap *snapshot) []Delta {
	var deltas []Delta
	for _, en := range gs.Enemies {
		was := snap.enemies[en.ID]
		nowVisible := en.Alive() && gs.Revealed(en.X, en.Y)
		switch {
		case nowVisible && !was.visible:
			view := viewOfEnemy(en)
			deltas = append(deltas, Delta{Kind: DeltaEnemyVisible, Enemy: &view})
		case was.visible && !en.Alive():
			deltas = append(deltas, Delta{Kind: DeltaEnemyKilled, EnemyID: en.ID})
		case was.visible && !nowVisible:
			deltas = append(deltas, Delta{Kind: DeltaEnemyHidden, EnemyID: en.ID})
		case was.visible && nowVisible:
			if en.X != was.x || en.Y != was.y {
				view := viewOfEnemy(en)
				deltas = append(deltas, Delta{Kind: DeltaEnemyMoved, Enemy: &view})
			}
			if en.HP != was.hp {
				view := viewOfEnemy(en)
				deltas = append(deltas, Delta{Kind: DeltaEnemyDamaged, Enemy: &view})
			}
		}
	}
	return deltas
}

func itemDeltas(gs *GameState, snap *snapshot, events []Event) []Delta {
	var deltas []Delta
	for _, it := range gs.Items {
		if gs.Revealed(it.X, it.Y) && !snap.itemsSeen[it.ID] {
			deltas = append(deltas, Delta{Kind: DeltaItemVisible, Item: it})
		}
	}
	for _, ev := range events {
		if ev.Type != EvItemPickedUp && ev.Type != EvEquipmentEquipped {
			continue
		}
		if id, ok := ev.Data["itemId"].(string); ok && id != "" {
			deltas = append(deltas, Delta{Kind: DeltaItemRemoved, ItemID: id})
		}
	}
	return deltas
}
