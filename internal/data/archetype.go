package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Archetype is the immutable template for an AI-controlled entity.
type Archetype struct {
	ID           int32
	Name         string
	MaxHP        int32
	MoveSpeed    int32
	DetectRadius int32
	Abilities    []int32 // action definition IDs this archetype may use
}

// SpawnEntry places archetype instances into the world at boot.
type SpawnEntry struct {
	ArchetypeID int32 `yaml:"archetype_id"`
	Count       int   `yaml:"count"`
	X           int32 `yaml:"x"`
	Y           int32 `yaml:"y"`
}

// ArchetypeTable holds all archetypes indexed by ID.
type ArchetypeTable struct {
	archetypes map[int32]*Archetype
	spawns     []SpawnEntry
}

func (t *ArchetypeTable) Get(id int32) *Archetype { return t.archetypes[id] }
func (t *ArchetypeTable) Count() int              { return len(t.archetypes) }
func (t *ArchetypeTable) Spawns() []SpawnEntry    { return t.spawns }

type archetypeEntry struct {
	ID           int32   `yaml:"id"`
	Name         string  `yaml:"name"`
	MaxHP        int32   `yaml:"max_hp"`
	MoveSpeed    int32   `yaml:"move_speed"`
	DetectRadius int32   `yaml:"detect_radius"`
	Abilities    []int32 `yaml:"abilities"`
}

type archetypeFile struct {
	Archetypes []archetypeEntry `yaml:"archetypes"`
	Spawns     []SpawnEntry     `yaml:"spawns"`
}

// LoadArchetypeTable loads AI archetypes and their spawn list from YAML.
// Abilities are validated against the action table.
func LoadArchetypeTable(path string, actions *ActionTable) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetype list %s: %w", path, err)
	}
	var file archetypeFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse archetype list %s: %w", path, err)
	}

	t := &ArchetypeTable{
		archetypes: make(map[int32]*Archetype, len(file.Archetypes)),
		spawns:     file.Spawns,
	}
	for _, e := range file.Archetypes {
		for _, abilityID := range e.Abilities {
			if actions.Get(abilityID) == nil {
				return nil, fmt.Errorf("archetype %d (%s): unknown ability %d", e.ID, e.Name, abilityID)
			}
		}
		if _, dup := t.archetypes[e.ID]; dup {
			return nil, fmt.Errorf("duplicate archetype id %d", e.ID)
		}
		t.archetypes[e.ID] = &Archetype{
			ID:           e.ID,
			Name:         e.Name,
			MaxHP:        e.MaxHP,
			MoveSpeed:    e.MoveSpeed,
			DetectRadius: e.DetectRadius,
			Abilities:    e.Abilities,
		}
	}
	for _, sp := range file.Spawns {
		if t.archetypes[sp.ArchetypeID] == nil {
			return nil, fmt.Errorf("spawn references unknown archetype %d", sp.ArchetypeID)
		}
	}
	return t, nil
}
