package game

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const (
	roomAttempts   = 100
	genRetries     = 10
	placeRetries   = 50
	potionHealBase = 10
)

type room struct {
	x, y, w, h int
}

func (r room) center() Point { return Point{X: r.x + r.w/2, Y: r.y + r.h/2} }

// overlapsInflated reports whether two rooms touch when one is grown by a
// one-tile margin, so accepted rooms always keep a wall between them.
func (r room) overlapsInflated(o room) bool {
	return r.x-1 < o.x+o.w && r.x+r.w+1 > o.x &&
		r.y-1 < o.y+o.h && r.y+r.h+1 > o.y
}

type floorLayout struct {
	tiles       Map
	playerStart Point
	enemies     []*Enemy
	items       []*Item
}

// generateFloor builds a fully connected floor: rooms, L-corridors in
// center-sorted order, an extra first-to-last corridor, stairs in the last
// room, then enemy and item seeding. Generation is total in practice; the
// two-room assertion retries a bounded number of times before failing the
// descend.
func (e *Engine) generateFloor(floor int, character string) (*floorLayout, error) {
	for attempt := 0; attempt < genRetries; attempt++ {
		layout, ok := e.tryGenerate(floor, character)
		if ok {
			return layout, nil
		}
		e.log.Warn("floor generation retry",
			zap.Int("floor", floor), zap.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("floor %d: generator produced fewer than two rooms after %d attempts", floor, genRetries)
}

func (e *Engine) tryGenerate(floor int, character string) (*floorLayout, bool) {
	tiles := make(Map, MapHeight)
	for y := 0; y < MapHeight; y++ {
		tiles[y] = make([]Tile, MapWidth)
		for x := 0; x < MapWidth; x++ {
			tiles[y][x] = Tile{Kind: TileWall, X: x, Y: y}
		}
	}

	target := e.rng.intIn(5, 8)
	var rooms []room
	for i := 0; i < roomAttempts && len(rooms) < target; i++ {
		cand := room{
			x: e.rng.intIn(1, MapWidth-10),
			y: e.rng.intIn(1, MapHeight-8),
			w: e.rng.intIn(4, 8),
			h: e.rng.intIn(4, 6),
		}
		if cand.x+cand.w >= MapWidth-1 || cand.y+cand.h >= MapHeight-1 {
			continue
		}
		clear := true
		for _, r := range rooms {
			if cand.overlapsInflated(r) {
				clear = false
				break
			}
		}
		if clear {
			rooms = append(rooms, cand)
		}
	}
	if len(rooms) < 2 {
		return nil, false
	}

	for _, r := range rooms {
		for y := r.y; y < r.y+r.h; y++ {
			for x := r.x; x < r.x+r.w; x++ {
				tiles[y][x] = Tile{Kind: TileFloor, X: x, Y: y}
			}
		}
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		ci, cj := rooms[i].center(), rooms[j].center()
		return float64(ci.X)+0.5*float64(ci.Y) < float64(cj.X)+0.5*float64(cj.Y)
	})

	for i := 0; i+1 < len(rooms); i++ {
		carveCorridor(tiles, rooms[i].center(), rooms[i+1].center())
	}
	// Extra loop edge guarantees a path from the start room to the stairs.
	carveCorridor(tiles, rooms[0].center(), rooms[len(rooms)-1].center())

	start := rooms[0].center()
	stairs := rooms[len(rooms)-1].center()
	tiles[stairs.Y][stairs.X] = Tile{Kind: TileStairs, X: stairs.X, Y: stairs.Y}

	layout := &floorLayout{tiles: tiles, playerStart: start}
	e.seedEnemies(layout, rooms, floor)
	e.seedItems(layout, rooms, floor, character, stairs)
	return layout, true
}

// carveCorridor digs an L: horizontal at a.Y, then vertical at b.X.
func carveCorridor(tiles Map, a, b Point) {
	x1, x2 := a.X, b.X
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		carveCell(tiles, x, a.Y)
	}
	y1, y2 := a.Y, b.Y
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		carveCell(tiles, b.X, y)
	}
}

func carveCell(tiles Map, x, y int) {
	if !InBounds(x, y) {
		return
	}
	if tiles[y][x].Kind == TileWall {
		tiles[y][x] = Tile{Kind: TileFloor, X: x, Y: y}
	}
}

func (e *Engine) seedEnemies(layout *floorLayout, rooms []room, floor int) {
	count := e.rng.intIn(3, 5) + floor/2
	kinds := e.tables.KindsForFloor(floor)
	for i := 0; i < count; i++ {
		r := rooms[e.rng.intIn(1, len(rooms)-1)]
		cell, ok := e.freeCell(layout, r)
		if !ok {
			continue
		}
		kind := kinds[e.rng.intn(len(kinds))]
		tmpl, ok := e.tables.Enemy(kind)
		if !ok {
			continue
		}
		id := fmt.Sprintf("enemy-%d-%d", floor, i+1)
		layout.enemies = append(layout.enemies, e.spawnEnemy(id, kind, tmpl, floor, cell))
	}
}

func (e *Engine) seedItems(layout *floorLayout, rooms []room, floor int, character string, stairs Point) {
	seq := 0
	place := func(kind ItemKind, value int, eq *Equipment) {
		r := rooms[e.rng.intn(len(rooms))]
		cell, ok := e.itemCell(layout, r, stairs)
		if !ok {
			return
		}
		seq++
		layout.items = append(layout.items, &Item{
			ID:        fmt.Sprintf("item-%d-%d", floor, seq),
			Kind:      kind,
			X:         cell.X,
			Y:         cell.Y,
			Value:     value,
			Equipment: eq,
		})
	}

	potions := e.rng.intIn(1, 3)
	for i := 0; i < potions; i++ {
		place(ItemHealthPotion, potionHealBase, nil)
	}

	class, _ := e.tables.Class(character)
	catalog := e.tables.CatalogForFloor(floor, class.RangedKind)
	if len(catalog) == 0 {
		return
	}
	drops := e.rng.intIn(1, 2)
	for i := 0; i < drops; i++ {
		info := catalog[e.rng.intn(len(catalog))]
		place(ItemEquipment, 0, &Equipment{
			ID:                info.ID,
			Name:              info.Name,
			Slot:              Slot(info.Slot),
			Tier:              info.Tier,
			AttackBonus:       info.AttackBonus,
			DefenseBonus:      info.DefenseBonus,
			HPBonus:           info.HPBonus,
			RangedDamageBonus: info.RangedDamageBonus,
			RangedRangeBonus:  info.RangedRangeBonus,
		})
	}
}

// freeCell picks a random interior cell not already claimed by the player
// start, the stairs, or another enemy.
func (e *Engine) freeCell(layout *floorLayout, r room) (Point, bool) {
	for i := 0; i < placeRetries; i++ {
		p := Point{X: e.rng.intIn(r.x, r.x+r.w-1), Y: e.rng.intIn(r.y, r.y+r.h-1)}
		if p == layout.playerStart || layout.tiles[p.Y][p.X].Kind == TileStairs {
			continue
		}
		occupied := false
		for _, en := range layout.enemies {
			if en.X == p.X && en.Y == p.Y {
				occupied = true
				break
			}
		}
		if !occupied {
			return p, true
		}
	}
	return Point{}, false
}

func (e *Engine) itemCell(layout *floorLayout, r room, stairs Point) (Point, bool) {
	for i := 0; i < placeRetries; i++ {
		p := Point{X: e.rng.intIn(r.x, r.x+r.w-1), Y: e.rng.intIn(r.y, r.y+r.h-1)}
		if p == stairs || p == layout.playerStart {
			continue
		}
		taken := false
		for _, it := range layout.items {
			if it.X == p.X && it.Y == p.Y {
				taken = true
				break
			}
		}
		if !taken {
			return p, true
		}
	}
	return Point{}, false
}
