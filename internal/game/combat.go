package game

import (
	"fmt"
	"math"

	"github.com/deepfall/server/internal/data"
)

// variantMult scales base enemy stats per strength tier.
type variantMult struct {
	hp, attack, defense, xp float64
	prefix                  string
}

var variantMults = map[EnemyVariant]variantMult{
	VariantNormal:   {1, 1, 1, 1, ""},
	VariantElite:    {1.5, 1.5, 1.2, 2.5, "Elite "},
	VariantChampion: {2.5, 1.8, 1.5, 4, "Champion "},
}

// rollVariant picks the strength tier for a spawn. Champion odds ramp with
// the floor up to 20%, elite up to 40%.
func (e *Engine) rollVariant(floor int) EnemyVariant {
	championChance := clampFloat(float64(floor-1)*0.04, 0, 0.20)
	eliteChance := clampFloat(0.10+float64(floor)*0.05, 0, 0.40)
	roll := e.rng.Float64()
	switch {
	case roll < championChance:
		return VariantChampion
	case roll < championChance+eliteChance:
		return VariantElite
	default:
		return VariantNormal
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// spawnEnemy constructs an enemy from its template: variant roll, stat
// scaling, and the behavior assignment for mixed templates.
func (e *Engine) spawnEnemy(id, kind string, tmpl data.EnemyInfo, floor int, at Point) *Enemy {
	variant := e.rollVariant(floor)
	m := variantMults[variant]

	behavior := Behavior(tmpl.Behavior)
	if tmpl.Behavior == "mixed" {
		if e.rng.Float64() < tmpl.PatrolChance {
			behavior = BehaviorPatrol
		} else {
			behavior = BehaviorAggressive
		}
	}

	hp := int(math.Floor(float64(tmpl.HP) * m.hp))
	return &Enemy{
		ID:          id,
		Type:        kind,
		Variant:     variant,
		DisplayName: m.prefix + tmpl.Name,
		X:           at.X,
		Y:           at.Y,
		HP:          hp,
		MaxHP:       hp,
		Attack:      int(math.Floor(float64(tmpl.Attack) * m.attack)),
		Defense:     int(math.Floor(float64(tmpl.Defense) * m.defense)),
		XP:          int(math.Floor(float64(tmpl.XP) * m.xp)),
		Score:       tmpl.Score,
		Behavior:    behavior,
	}
}

// meleeAttack resolves the player striking an adjacent enemy in place of a
// move. The player does not advance.
func (e *Engine) meleeAttack(gs *GameState, enemy *Enemy, t *turnLog) {
	damage := maxInt(1, gs.Player.Attack-enemy.Defense)
	enemy.HP = maxInt(0, enemy.HP-damage)
	t.add(EvPlayerAttacked,
		fmt.Sprintf("You hit the %s for %d damage", enemy.DisplayName, damage),
		map[string]any{"enemyId": enemy.ID, "damage": damage})
	if !enemy.Alive() {
		e.killEnemy(gs, enemy, t)
	}
}

// rangedAttack scans along the player's facing. The ray stops at the first
// wall or the first live enemy; running out of range is a miss at the last
// scanned cell.
func (e *Engine) rangedAttack(gs *GameState, t *turnLog) {
	p := &gs.Player
	class, _ := e.tables.Class(p.Character)
	attackType := class.AttackType

	dx := 1
	if p.Facing == FacingLeft {
		dx = -1
	}
	// Ranged bonuses are folded into the player stats at equip time.
	damage := p.RangedDamage
	rng := p.RangedRange

	tx, ty := p.X, p.Y
	for i := 1; i <= rng; i++ {
		x := p.X + dx*i
		if !InBounds(x, p.Y) {
			break
		}
		tx, ty = x, p.Y
		if gs.Map[p.Y][x].Blocks() {
			t.add(EvRangedMissed, "Your shot hits a wall", map[string]any{
				"targetX": tx, "targetY": ty, "damage": 0, "attackType": attackType,
			})
			return
		}
		if enemy := gs.EnemyAt(x, p.Y); enemy != nil {
			dmg := maxInt(1, damage-enemy.Defense)
			enemy.HP = maxInt(0, enemy.HP-dmg)
			t.add(EvRangedAttack,
				fmt.Sprintf("You hit the %s for %d damage", enemy.DisplayName, dmg),
				map[string]any{
					"targetX": tx, "targetY": ty, "damage": dmg,
					"attackType": attackType, "enemyId": enemy.ID,
				})
			if !enemy.Alive() {
				e.killEnemy(gs, enemy, t)
			}
			return
		}
	}
	t.add(EvRangedMissed, "Your shot finds nothing", map[string]any{
		"targetX": tx, "targetY": ty, "damage": 0, "attackType": attackType,
	})
}

// killEnemy applies score and the XP/level-up chain for a dying enemy.
func (e *Engine) killEnemy(gs *GameState, enemy *Enemy, t *turnLog) {
	gs.Score += enemy.Score
	t.add(EvEnemyKilled,
		fmt.Sprintf("The %s dies", enemy.DisplayName),
		map[string]any{"enemyId": enemy.ID, "enemyType": enemy.Type, "variant": string(enemy.Variant)})

	gs.Player.XP += enemy.XP
	t.add(EvXPGained,
		fmt.Sprintf("You gain %d experience", enemy.XP),
		map[string]any{"amount": enemy.XP})

	// Excess XP carries over through repeated level-ups within the turn.
	for gs.Player.XP >= gs.Player.XPToNextLevel {
		gs.Player.XP -= gs.Player.XPToNextLevel
		gs.Player.Level++
		gs.Player.MaxHP += 3
		gs.Player.Attack++
		gs.Player.Defense++
		heal := gs.Player.MaxHP / 2
		gs.Player.HP = minInt(gs.Player.MaxHP, gs.Player.HP+heal)
		gs.Player.XPToNextLevel = xpToNextLevel(gs.Player.Level)
		t.add(EvLevelUp,
			fmt.Sprintf("Welcome to level %d", gs.Player.Level),
			map[string]any{"level": gs.Player.Level})
	}
}

// pickupItem resolves the item (if any) on the tile the player just entered.
func (e *Engine) pickupItem(gs *GameState, t *turnLog) {
	item := gs.ItemAt(gs.Player.X, gs.Player.Y)
	if item == nil {
		return
	}
	switch item.Kind {
	case ItemHealthPotion:
		if gs.Player.HP >= gs.Player.MaxHP {
			t.add(EvPotionRefused, "You are already at full health", map[string]any{"itemId": item.ID})
			return
		}
		heal := minInt(item.Value, gs.Player.MaxHP-gs.Player.HP)
		gs.Player.HP += heal
		gs.RemoveItem(item.ID)
		t.add(EvItemPickedUp, "You pick up a health potion", map[string]any{"itemId": item.ID, "kind": string(item.Kind)})
		t.add(EvPlayerHealed,
			fmt.Sprintf("You recover %d health", heal),
			map[string]any{"amount": heal, "itemId": item.ID})
	case ItemEquipment:
		e.pickupEquipment(gs, item, t)
	}
}

// pickupEquipment auto-swaps when the ground item beats the current slot by
// bonus sum; otherwise the item stays on the ground.
func (e *Engine) pickupEquipment(gs *GameState, item *Item, t *turnLog) {
	incoming := item.Equipment
	if incoming == nil {
		return
	}
	current := gs.Player.Equipment.Get(incoming.Slot)
	if current != nil && incoming.BonusSum() <= current.BonusSum() {
		t.add(EvEquipmentFound,
			fmt.Sprintf("You find a %s, but yours is better", incoming.Name),
			map[string]any{"itemId": item.ID, "equipmentId": incoming.ID, "notBetter": true})
		return
	}

	if current != nil {
		applyBonuses(&gs.Player, current, -1)
	}
	applyBonuses(&gs.Player, incoming, 1)
	gs.Player.HP = minInt(gs.Player.HP, gs.Player.MaxHP)
	gs.Player.Equipment.Set(incoming.Slot, incoming)
	gs.RemoveItem(item.ID)
	t.add(EvEquipmentEquipped,
		fmt.Sprintf("You equip the %s", incoming.Name),
		map[string]any{"itemId": item.ID, "equipmentId": incoming.ID, "slot": string(incoming.Slot)})
}

func applyBonuses(p *Player, eq *Equipment, sign int) {
	p.Attack += sign * eq.AttackBonus
	p.Defense += sign * eq.DefenseBonus
	p.MaxHP += sign * eq.HPBonus
	p.RangedDamage += sign * eq.RangedDamageBonus
	p.RangedRange += sign * eq.RangedRangeBonus
}

// enemyStrike is one enemy hitting the adjacent player. Returns true if the
// blow was fatal; the caller stops AI processing and finalises the death.
func (e *Engine) enemyStrike(gs *GameState, enemy *Enemy, t *turnLog) bool {
	damage := maxInt(1, enemy.Attack-gs.Player.Defense)
	gs.Player.HP = maxInt(0, gs.Player.HP-damage)
	t.add(EvPlayerDamaged,
		fmt.Sprintf("The %s hits you for %d damage", enemy.DisplayName, damage),
		map[string]any{"enemyId": enemy.ID, "damage": damage})
	if gs.Player.HP > 0 {
		return false
	}
	gs.Status = StatusDead
	t.add(EvPlayerDied,
		fmt.Sprintf("You were slain by the %s", enemy.DisplayName),
		map[string]any{
			"killedBy":        enemy.DisplayName,
			"killedByType":    enemy.Type,
			"killedByVariant": string(enemy.Variant),
		})
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
