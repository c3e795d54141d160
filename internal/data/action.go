package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ActionKind is the closed set of effect variants. Every ability resolves to
// one of these; dispatch happens in a single execution function.
type ActionKind int

const (
	KindMelee ActionKind = iota
	KindRanged
	KindHeal
	KindBuff
	KindArea
)

func (k ActionKind) String() string {
	switch k {
	case KindMelee:
		return "melee"
	case KindRanged:
		return "ranged"
	case KindHeal:
		return "heal"
	case KindBuff:
		return "buff"
	case KindArea:
		return "area"
	}
	return "unknown"
}

// ActionDefinition is the immutable configuration of one ability. Loaded at
// boot, never mutated, shared by reference across every entity that can use it.
type ActionDefinition struct {
	ID           int32
	Name         string
	Kind         ActionKind
	Duration     time.Duration // total running time
	ExecOffset   time.Duration // when within Duration the effect applies
	ReuseTime    time.Duration // cooldown; 0 = none
	BuffDuration time.Duration // how long a buff persists after application
	Range        int32         // tiles; 0 = self
	Amount       int32         // damage (melee/ranged/area), heal, or buff strength
	FriendlyFire bool
	AnimTrigger  string // animation trigger name for renderer collaborators
}

// ActionTable holds all action definitions indexed by ID.
type ActionTable struct {
	actions map[int32]*ActionDefinition
	byName  map[string]*ActionDefinition
}

// Get returns a definition by ID, or nil if not found.
func (t *ActionTable) Get(id int32) *ActionDefinition {
	return t.actions[id]
}

// GetByName returns a definition by its exact name, or nil if not found.
func (t *ActionTable) GetByName(name string) *ActionDefinition {
	return t.byName[name]
}

// Count returns total loaded definitions.
func (t *ActionTable) Count() int {
	return len(t.actions)
}

// --- YAML loading ---

type actionEntry struct {
	ID           int32  `yaml:"id"`
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	DurationMs   int    `yaml:"duration_ms"`
	ExecOffsetMs int    `yaml:"exec_offset_ms"`
	ReuseMs      int    `yaml:"reuse_ms"`
	BuffMs       int    `yaml:"buff_ms"`
	Range        int32  `yaml:"range"`
	Amount       int32  `yaml:"amount"`
	FriendlyFire bool   `yaml:"friendly_fire"`
	AnimTrigger  string `yaml:"anim_trigger"`
}

// LoadActionTable loads the action list from a YAML file.
func LoadActionTable(path string) (*ActionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action list %s: %w", path, err)
	}
	var entries []actionEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse action list %s: %w", path, err)
	}
	return buildActionTable(entries)
}

func buildActionTable(entries []actionEntry) (*ActionTable, error) {
	t := &ActionTable{
		actions: make(map[int32]*ActionDefinition, len(entries)),
		byName:  make(map[string]*ActionDefinition, len(entries)),
	}
	for _, e := range entries {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", e.ID, e.Name, err)
		}
		if e.ExecOffsetMs > e.DurationMs {
			return nil, fmt.Errorf("action %d (%s): exec offset exceeds duration", e.ID, e.Name)
		}
		def := &ActionDefinition{
			ID:           e.ID,
			Name:         e.Name,
			Kind:         kind,
			Duration:     time.Duration(e.DurationMs) * time.Millisecond,
			ExecOffset:   time.Duration(e.ExecOffsetMs) * time.Millisecond,
			ReuseTime:    time.Duration(e.ReuseMs) * time.Millisecond,
			BuffDuration: time.Duration(e.BuffMs) * time.Millisecond,
			Range:        e.Range,
			Amount:       e.Amount,
			FriendlyFire: e.FriendlyFire,
			AnimTrigger:  e.AnimTrigger,
		}
		if _, dup := t.actions[def.ID]; dup {
			return nil, fmt.Errorf("duplicate action id %d", def.ID)
		}
		t.actions[def.ID] = def
		t.byName[def.Name] = def
	}
	return t, nil
}

func parseKind(s string) (ActionKind, error) {
	switch s {
	case "melee":
		return KindMelee, nil
	case "ranged":
		return KindRanged, nil
	case "heal":
		return KindHeal, nil
	case "buff":
		return KindBuff, nil
	case "area":
		return KindArea, nil
	}
	return 0, fmt.Errorf("unknown action kind %q", s)
}
