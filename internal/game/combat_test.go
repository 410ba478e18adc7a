package game

import (
	"reflect"
	"testing"
)

func TestMeleeKill(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	addEnemy(gs, "rat-1", 6, 5, BehaviorStationary)

	events, err := e.Move(gs, DirRight)
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	attacked := findEvent(t, events, EvPlayerAttacked)
	if attacked.Data["damage"] != 10 {
		t.Errorf("expected 10 damage, got %v", attacked.Data["damage"])
	}
	if !hasEvent(events, EvEnemyKilled) {
		t.Errorf("expected enemy_killed, got %v", eventTypes(events))
	}
	xp := findEvent(t, events, EvXPGained)
	if xp.Data["amount"] != 8 {
		t.Errorf("expected 8 xp, got %v", xp.Data["amount"])
	}
	if gs.Score != 10 {
		t.Errorf("expected score 10, got %d", gs.Score)
	}
	// The attacker holds position.
	if gs.Player.X != 5 || gs.Player.Y != 5 {
		t.Errorf("player moved to (%d,%d)", gs.Player.X, gs.Player.Y)
	}
	if gs.Enemies[0].Alive() {
		t.Error("enemy should be dead")
	}
}

func TestMeleeDamageFloor(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.Attack = 1
	en := addEnemy(gs, "rat-1", 6, 5, BehaviorStationary)
	en.Defense = 99
	en.HP, en.MaxHP = 6, 6

	if _, err := e.Move(gs, DirRight); err != nil {
		t.Fatalf("move: %v", err)
	}
	if en.HP != 5 {
		t.Errorf("minimum damage is 1, enemy hp = %d", en.HP)
	}
}

func TestLevelUpCarriesExcessXP(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.XPToNextLevel = 10

	// A kill worth more than the current threshold.
	en := addEnemy(gs, "dragon-1", 6, 5, BehaviorStationary)
	en.XP = 35

	tl := &turnLog{}
	en.HP = 0
	e.killEnemy(gs, en, tl)

	// 35 xp clears the 10-point threshold once; the remaining 25 stays
	// below the recomputed level*50.
	if gs.Player.Level != 2 {
		t.Fatalf("expected level 2, got %d", gs.Player.Level)
	}
	if gs.Player.XP >= gs.Player.XPToNextLevel {
		t.Errorf("xp %d must stay below threshold %d", gs.Player.XP, gs.Player.XPToNextLevel)
	}

	levelUps := 0
	for _, ev := range tl.events {
		if ev.Type == EvLevelUp {
			levelUps++
		}
	}
	if levelUps != 1 {
		t.Errorf("expected 1 level_up event, got %d", levelUps)
	}
}

func TestLevelUpLoopTerminates(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.XPToNextLevel = 10

	en := addEnemy(gs, "dragon-1", 6, 5, BehaviorStationary)
	en.XP = 800 // champion dragon against a fresh character
	en.HP = 0

	tl := &turnLog{}
	e.killEnemy(gs, en, tl)

	if gs.Player.XP >= gs.Player.XPToNextLevel {
		t.Errorf("xp %d not below threshold %d after loop", gs.Player.XP, gs.Player.XPToNextLevel)
	}
	if gs.Player.Level < 3 {
		t.Errorf("expected several level-ups, got level %d", gs.Player.Level)
	}
	if gs.Player.XPToNextLevel != gs.Player.Level*50 {
		t.Errorf("threshold %d does not match level %d", gs.Player.XPToNextLevel, gs.Player.Level)
	}
}

func TestPotionRefusedAtFullHealth(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	addItem(gs, "potion-1", ItemHealthPotion, 6, 5, 10, nil)

	events, err := e.Move(gs, DirRight)
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	if !hasEvent(events, EvPlayerMoved) || !hasEvent(events, EvPotionRefused) {
		t.Fatalf("expected player_moved + potion_refused, got %v", eventTypes(events))
	}
	if gs.Player.HP != 25 {
		t.Errorf("hp changed to %d", gs.Player.HP)
	}
	if gs.ItemAt(6, 5) == nil {
		t.Error("refused potion must stay on the ground")
	}
}

func TestPotionHealsAndIsConsumed(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.HP = 18
	addItem(gs, "potion-1", ItemHealthPotion, 6, 5, 10, nil)

	events, err := e.Move(gs, DirRight)
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	healed := findEvent(t, events, EvPlayerHealed)
	if healed.Data["amount"] != 7 {
		t.Errorf("expected heal of 7 (clamped), got %v", healed.Data["amount"])
	}
	if gs.Player.HP != 25 {
		t.Errorf("expected hp 25, got %d", gs.Player.HP)
	}
	if gs.ItemAt(6, 5) != nil {
		t.Error("potion should be consumed")
	}
}

func TestEquipmentAutoSwap(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	sword := &Equipment{ID: "short_sword", Name: "Short Sword", Slot: SlotWeapon, Tier: 2, AttackBonus: 2}
	addItem(gs, "item-1", ItemEquipment, 6, 5, 0, sword)

	events, err := e.Move(gs, DirRight)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !hasEvent(events, EvEquipmentEquipped) {
		t.Fatalf("expected equipment_equipped, got %v", eventTypes(events))
	}
	if gs.Player.Attack != 12 {
		t.Errorf("expected attack 12, got %d", gs.Player.Attack)
	}
	if gs.Player.Equipment.Weapon == nil || gs.Player.Equipment.Weapon.ID != "short_sword" {
		t.Error("weapon slot not set")
	}
	if gs.ItemAt(6, 5) != nil {
		t.Error("equipped item should leave the ground")
	}
}

func TestEquipmentNotBetterStaysOnGround(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.Equipment.Weapon = &Equipment{ID: "battle_axe", Slot: SlotWeapon, Tier: 3, AttackBonus: 4}
	gs.Player.Attack += 4
	weaker := &Equipment{ID: "rusty_sword", Slot: SlotWeapon, Tier: 1, AttackBonus: 1}
	addItem(gs, "item-1", ItemEquipment, 6, 5, 0, weaker)

	events, err := e.Move(gs, DirRight)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	found := findEvent(t, events, EvEquipmentFound)
	if found.Data["notBetter"] != true {
		t.Errorf("expected notBetter=true, got %v", found.Data)
	}
	if gs.Player.Equipment.Weapon.ID != "battle_axe" {
		t.Error("existing weapon must stay equipped")
	}
	if gs.ItemAt(6, 5) == nil {
		t.Error("weaker item must stay on the ground")
	}
}

// Equipment bonuses are self-inverse at the stat level: applying and
// removing the same record restores the original stats exactly.
func TestEquipmentBonusesSelfInverse(t *testing.T) {
	gs := flatState()
	before := gs.Player
	eq := &Equipment{
		ID: "tower_shield", Slot: SlotShield, Tier: 5,
		DefenseBonus: 5, HPBonus: 4,
	}

	applyBonuses(&gs.Player, eq, 1)
	applyBonuses(&gs.Player, eq, -1)

	if !reflect.DeepEqual(gs.Player, before) {
		t.Errorf("stats drifted: %+v != %+v", gs.Player, before)
	}
}

func TestEquipmentSwapSubtractsOldBonuses(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	old := &Equipment{ID: "wooden_shield", Slot: SlotShield, Tier: 1, DefenseBonus: 1}
	gs.Player.Equipment.Shield = old
	gs.Player.Defense += old.DefenseBonus

	better := &Equipment{ID: "iron_shield", Slot: SlotShield, Tier: 3, DefenseBonus: 3}
	addItem(gs, "item-1", ItemEquipment, 6, 5, 0, better)

	if _, err := e.Move(gs, DirRight); err != nil {
		t.Fatalf("move: %v", err)
	}
	// 2 base + 3 from the new shield; the old +1 is gone.
	if gs.Player.Defense != 5 {
		t.Errorf("expected defense 5, got %d", gs.Player.Defense)
	}
}

func TestRangedMissIntoWall(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState() // wizard, range 4, facing right at (5,5)
	setWall(gs, 8, 5)

	events, err := e.Attack(gs)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}

	missed := findEvent(t, events, EvRangedMissed)
	if missed.Data["targetX"] != 8 || missed.Data["targetY"] != 5 {
		t.Errorf("expected wall cell (8,5), got (%v,%v)", missed.Data["targetX"], missed.Data["targetY"])
	}
	if missed.Data["damage"] != 0 {
		t.Errorf("expected 0 damage, got %v", missed.Data["damage"])
	}
	if missed.Data["attackType"] != "spell" {
		t.Errorf("expected spell, got %v", missed.Data["attackType"])
	}
}

func TestRangedMissAtEndOfRange(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState() // range 4

	events, err := e.Attack(gs)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	missed := findEvent(t, events, EvRangedMissed)
	if missed.Data["targetX"] != 9 || missed.Data["targetY"] != 5 {
		t.Errorf("expected last scanned cell (9,5), got (%v,%v)", missed.Data["targetX"], missed.Data["targetY"])
	}
}

func TestRangedHitsFirstEnemy(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	near := addEnemy(gs, "rat-1", 7, 5, BehaviorStationary)
	far := addEnemy(gs, "rat-2", 8, 5, BehaviorStationary)

	events, err := e.Attack(gs)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	hit := findEvent(t, events, EvRangedAttack)
	if hit.Data["enemyId"] != "rat-1" {
		t.Errorf("expected first enemy hit, got %v", hit.Data["enemyId"])
	}
	if hit.Data["damage"] != 7 {
		t.Errorf("expected 7 damage, got %v", hit.Data["damage"])
	}
	if near.Alive() {
		t.Error("rat with 6 hp dies to 7 damage")
	}
	if !far.Alive() || far.HP != far.MaxHP {
		t.Error("projectile must stop at the first enemy")
	}
}

func TestRangedUsesFacingLeft(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.Facing = FacingLeft
	en := addEnemy(gs, "rat-1", 3, 5, BehaviorStationary)

	events, err := e.Attack(gs)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	if !hasEvent(events, EvRangedAttack) {
		t.Fatalf("expected hit to the left, got %v", eventTypes(events))
	}
	if en.HP == en.MaxHP {
		t.Error("enemy left of the player must take damage")
	}
}

func TestSpawnEnemyVariantStats(t *testing.T) {
	e := testEngine(t, 7)
	tmpl, ok := e.tables.Enemy("orc")
	if !ok {
		t.Fatal("orc template missing")
	}

	variants := map[EnemyVariant]bool{}
	for i := 0; i < 300; i++ {
		en := e.spawnEnemy("orc-x", "orc", tmpl, 10, Point{X: 3, Y: 3})
		variants[en.Variant] = true
		m := variantMults[en.Variant]
		if want := int(float64(tmpl.HP) * m.hp); en.HP != want {
			t.Fatalf("%s hp = %d, want %d", en.Variant, en.HP, want)
		}
		if want := int(float64(tmpl.XP) * m.xp); en.XP != want {
			t.Fatalf("%s xp = %d, want %d", en.Variant, en.XP, want)
		}
		if en.Variant != VariantNormal && en.DisplayName == tmpl.Name {
			t.Fatalf("%s variant must carry a name prefix", en.Variant)
		}
	}
	// Deep floor odds make all three tiers show up over 300 rolls.
	for _, v := range []EnemyVariant{VariantNormal, VariantElite, VariantChampion} {
		if !variants[v] {
			t.Errorf("variant %s never rolled", v)
		}
	}
}

func TestPlayerDeathEmitsKiller(t *testing.T) {
	e := testEngine(t, 1)
	gs := flatState()
	gs.Player.HP = 1
	// Behind the player: the ranged shot (facing right) misses, the orc
	// strikes back during the AI phase.
	en := addEnemy(gs, "orc-1", 4, 5, BehaviorAggressive)
	en.DisplayName = "Elite Orc"
	en.Type = "orc"
	en.Variant = VariantElite
	en.Attack = 13

	UpdateFog(gs)
	events, err := e.Attack(gs)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}

	if gs.Status != StatusDead {
		t.Fatalf("expected dead status, got %s", gs.Status)
	}
	died := findEvent(t, events, EvPlayerDied)
	if died.Data["killedBy"] != "Elite Orc" || died.Data["killedByType"] != "orc" {
		t.Errorf("bad killer payload: %v", died.Data)
	}
	deaths := 0
	for _, ev := range events {
		if ev.Type == EvPlayerDied {
			deaths++
		}
	}
	if deaths != 1 {
		t.Errorf("expected exactly one player_died, got %d", deaths)
	}
}
