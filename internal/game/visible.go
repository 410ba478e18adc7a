package game

// EnemyView is the client-facing projection of an enemy. Behavior and
// memory stay server-side.
type EnemyView struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Variant     EnemyVariant `json:"variant"`
	DisplayName string       `json:"displayName"`
	X           int          `json:"x"`
	Y           int          `json:"y"`
	HP          int          `json:"hp"`
	MaxHP       int          `json:"maxHp"`
}

func viewOfEnemy(e *Enemy) EnemyView {
	return EnemyView{
		ID:          e.ID,
		Type:        e.Type,
		Variant:     e.Variant,
		DisplayName: e.DisplayName,
		X:           e.X,
		Y:           e.Y,
		HP:          e.HP,
		MaxHP:       e.MaxHP,
	}
}

// VisibleState is the full fog-filtered view of a game, sent in init and
// new_floor messages. Nothing outside the fog ever crosses the wire.
type VisibleState struct {
	MapWidth   int         `json:"mapWidth"`
	MapHeight  int         `json:"mapHeight"`
	Floor      int         `json:"floor"`
	Score      int         `json:"score"`
	Status     Status      `json:"status"`
	PlayerName string      `json:"playerName"`
	Player     Player      `json:"player"`
	Tiles      []Tile      `json:"tiles"`
	Explored   []Point     `json:"explored"`
	Enemies    []EnemyView `json:"enemies"`
	Items      []*Item     `json:"items"`
}

// VisibleStateOf projects the authoritative state through the fog filter.
func VisibleStateOf(gs *GameState) *VisibleState {
	vs := &VisibleState{
		MapWidth:   MapWidth,
		MapHeight:  MapHeight,
		Floor:      gs.Floor,
		Score:      gs.Score,
		Status:     gs.Status,
		PlayerName: gs.PlayerName,
		Player:     gs.Player,
		Tiles:      gs.VisibleTiles(),
		Explored:   gs.ExploredCells(),
		Items:      gs.VisibleItems(),
	}
	for _, e := range gs.VisibleEnemies() {
		vs.Enemies = append(vs.Enemies, viewOfEnemy(e))
	}
	return vs
}
