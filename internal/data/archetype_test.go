package data

import (
	"strings"
	"testing"
)

const archetypeActionsYAML = `
- id: 7
  name: Bite
  kind: melee
  duration_ms: 900
  exec_offset_ms: 500
  reuse_ms: 1000
  range: 1
  amount: 30

- id: 9
  name: Spit
  kind: ranged
  duration_ms: 1100
  exec_offset_ms: 700
  reuse_ms: 3000
  range: 6
  amount: 45
`

func archetypeActions(t *testing.T) *ActionTable {
	t.Helper()
	tbl, err := LoadActionTable(writeTempYAML(t, archetypeActionsYAML))
	if err != nil {
		t.Fatalf("load actions: %v", err)
	}
	return tbl
}

func TestLoadArchetypeTable(t *testing.T) {
	p := writeTempYAML(t, `
archetypes:
  - id: 1
    name: Imp
    max_hp: 150
    move_speed: 3
    detect_radius: 6
    abilities: [7]
  - id: 2
    name: Warden
    max_hp: 600
    move_speed: 2
    detect_radius: 8
    abilities: [7, 9]

spawns:
  - archetype_id: 1
    count: 4
    x: 10
    y: 10
  - archetype_id: 2
    count: 2
    x: 14
    y: 10
`)
	tbl, err := LoadArchetypeTable(p, archetypeActions(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count = %d, want 2", tbl.Count())
	}
	imp := tbl.Get(1)
	if imp == nil || imp.MaxHP != 150 || imp.DetectRadius != 6 || len(imp.Abilities) != 1 {
		t.Fatalf("imp = %+v", imp)
	}
	spawns := tbl.Spawns()
	if len(spawns) != 2 || spawns[0].Count != 4 || spawns[1].ArchetypeID != 2 {
		t.Fatalf("spawns = %+v", spawns)
	}
}

func TestLoadArchetypeTableRejectsUnknownAbility(t *testing.T) {
	p := writeTempYAML(t, `
archetypes:
  - id: 1
    name: Imp
    max_hp: 150
    abilities: [42]
`)
	_, err := LoadArchetypeTable(p, archetypeActions(t))
	if err == nil || !strings.Contains(err.Error(), "unknown ability 42") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadArchetypeTableRejectsDuplicateID(t *testing.T) {
	p := writeTempYAML(t, `
archetypes:
  - id: 1
    name: Imp
    max_hp: 150
  - id: 1
    name: Grel
    max_hp: 200
`)
	_, err := LoadArchetypeTable(p, archetypeActions(t))
	if err == nil || !strings.Contains(err.Error(), "duplicate archetype id 1") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadArchetypeTableRejectsUnknownSpawn(t *testing.T) {
	p := writeTempYAML(t, `
archetypes:
  - id: 1
    name: Imp
    max_hp: 150

spawns:
  - archetype_id: 3
    count: 1
`)
	_, err := LoadArchetypeTable(p, archetypeActions(t))
	if err == nil || !strings.Contains(err.Error(), "unknown archetype 3") {
		t.Fatalf("err = %v", err)
	}
}
