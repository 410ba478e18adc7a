package data

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed yaml/*.yaml
var files embed.FS

// ClassInfo is one playable character class template.
type ClassInfo struct {
	Name         string `yaml:"name"`
	HP           int    `yaml:"hp"`
	Attack       int    `yaml:"attack"`
	Defense      int    `yaml:"defense"`
	RangedDamage int    `yaml:"ranged_damage"`
	RangedRange  int    `yaml:"ranged_range"`
	AttackType   string `yaml:"attack_type"` // projectile name sent to clients
	RangedKind   string `yaml:"ranged_kind"` // which ranged weapon family the class can use
}

// EnemyInfo is one enemy template. Variant multipliers are applied on spawn.
type EnemyInfo struct {
	Name         string  `yaml:"name"`
	HP           int     `yaml:"hp"`
	Attack       int     `yaml:"attack"`
	Defense      int     `yaml:"defense"`
	XP           int     `yaml:"xp"`
	Score        int     `yaml:"score"`
	Behavior     string  `yaml:"behavior"`      // "aggressive", "flee", "mixed"
	PatrolChance float64 `yaml:"patrol_chance"` // mixed only: roll below this gives patrol
}

// EquipmentInfo is one entry of the global equipment catalog.
type EquipmentInfo struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Slot              string `yaml:"slot"` // weapon, shield, armor, ranged
	Tier              int    `yaml:"tier"`
	AttackBonus       int    `yaml:"attack_bonus"`
	DefenseBonus      int    `yaml:"defense_bonus"`
	HPBonus           int    `yaml:"hp_bonus"`
	RangedDamageBonus int    `yaml:"ranged_damage_bonus"`
	RangedRangeBonus  int    `yaml:"ranged_range_bonus"`
	RangedKind        string `yaml:"ranged_kind"` // set only on ranged-slot items
}

// Tables bundles every game data table loaded at boot.
type Tables struct {
	Classes     map[string]ClassInfo
	Enemies     map[string]EnemyInfo
	Progression []string // enemy kinds in floor-unlock order
	Catalog     []EquipmentInfo
}

type enemyFile struct {
	Progression []string             `yaml:"progression"`
	Enemies     map[string]EnemyInfo `yaml:"enemies"`
}

type catalogFile struct {
	Equipment []EquipmentInfo `yaml:"equipment"`
}

// Load parses the embedded YAML tables and validates cross-references.
func Load() (*Tables, error) {
	t := &Tables{}

	raw, err := files.ReadFile("yaml/classes.yaml")
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t.Classes); err != nil {
		return nil, fmt.Errorf("parse classes: %w", err)
	}

	raw, err = files.ReadFile("yaml/enemies.yaml")
	if err != nil {
		return nil, fmt.Errorf("read enemies: %w", err)
	}
	var ef enemyFile
	if err := yaml.Unmarshal(raw, &ef); err != nil {
		return nil, fmt.Errorf("parse enemies: %w", err)
	}
	t.Enemies = ef.Enemies
	t.Progression = ef.Progression

	raw, err = files.ReadFile("yaml/equipment.yaml")
	if err != nil {
		return nil, fmt.Errorf("read equipment: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse equipment: %w", err)
	}
	t.Catalog = cf.Equipment
	sort.SliceStable(t.Catalog, func(i, j int) bool { return t.Catalog[i].Tier < t.Catalog[j].Tier })

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tables) validate() error {
	if len(t.Classes) == 0 {
		return fmt.Errorf("classes table is empty")
	}
	for _, kind := range t.Progression {
		if _, ok := t.Enemies[kind]; !ok {
			return fmt.Errorf("progression references unknown enemy %q", kind)
		}
	}
	if len(t.Progression) == 0 {
		return fmt.Errorf("enemy progression is empty")
	}
	for _, e := range t.Catalog {
		if e.Tier < 1 || e.Tier > 6 {
			return fmt.Errorf("equipment %s: tier %d out of range", e.ID, e.Tier)
		}
		switch e.Slot {
		case "weapon", "shield", "armor":
		case "ranged":
			if e.RangedKind == "" {
				return fmt.Errorf("equipment %s: ranged item without ranged_kind", e.ID)
			}
		default:
			return fmt.Errorf("equipment %s: unknown slot %q", e.ID, e.Slot)
		}
	}
	return nil
}

// Class returns the template for a class kind, or false if unknown.
func (t *Tables) Class(kind string) (ClassInfo, bool) {
	c, ok := t.Classes[kind]
	return c, ok
}

// Enemy returns the template for an enemy kind, or false if unknown.
func (t *Tables) Enemy(kind string) (EnemyInfo, bool) {
	e, ok := t.Enemies[kind]
	return e, ok
}

// KindsForFloor returns the permissible enemy kinds on the given floor:
// the first min(1+floor/3, len) entries of the progression order.
func (t *Tables) KindsForFloor(floor int) []string {
	n := 1 + floor/3
	if n > len(t.Progression) {
		n = len(t.Progression)
	}
	return t.Progression[:n]
}

// CatalogForFloor returns catalog entries with tier <= floor+1, keeping only
// ranged items of the given weapon family.
func (t *Tables) CatalogForFloor(floor int, rangedKind string) []EquipmentInfo {
	var out []EquipmentInfo
	for _, e := range t.Catalog {
		if e.Tier > floor+1 {
			continue
		}
		if e.Slot == "ranged" && e.RangedKind != rangedKind {
			continue
		}
		out = append(out, e)
	}
	return out
}
