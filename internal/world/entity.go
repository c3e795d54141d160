package world

import "github.com/bossraid/server/internal/syncvar"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// LifeState is the coarse liveness of an entity. Players faint and can be
// revived; AI entities die outright.
type LifeState int32

const (
	LifeAlive LifeState = iota
	LifeFainted
	LifeDead
)

func (l LifeState) String() string {
	switch l {
	case LifeAlive:
		return "alive"
	case LifeFainted:
		return "fainted"
	case LifeDead:
		return "dead"
	}
	return "unknown"
}

// Kind separates player-driven entities from AI-driven ones. Entities of
// different kinds are hostile to each other.
type Kind int

const (
	KindPlayer Kind = iota
	KindMonster
)

// Replicated field identifiers.
const (
	FieldHP   uint16 = 1
	FieldLife uint16 = 2
)

// Entity is one simulated actor. All mutation happens on the game loop;
// HP and Life are authority-synchronized and replicate on change.
type Entity struct {
	ID          EntityID
	Name        string
	Kind        Kind
	ArchetypeID int32 // 0 for players

	X, Y      int32
	Heading   int16
	MoveSpeed int32
	Stealthed bool

	MaxHP int32
	HP    *syncvar.Var[int32]
	Life  *syncvar.Var[LifeState]

	// AI aggro memory: damage-weighted hate per attacker, plus the cached
	// current target. Survives across ticks until cleared by death.
	Hate        map[EntityID]int32
	AggroTarget EntityID

	// SessionID links a player entity to its transport session (0 for AI).
	SessionID uint64
}

func (e *Entity) Alive() bool { return e.Life.Get() == LifeAlive }

// Hostile reports whether other is on the opposing side.
func (e *Entity) Hostile(other *Entity) bool {
	return e.Kind != other.Kind
}

// Chebyshev returns the tile distance between two entities.
func Chebyshev(a, b *Entity) int32 {
	return chebyshev(a.X, a.Y, b.X, b.Y)
}

func chebyshev(x1, y1, x2, y2 int32) int32 {
	dx := abs32(x1 - x2)
	dy := abs32(y1 - y2)
	if dy > dx {
		return dy
	}
	return dx
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
