package world

import "github.com/bossraid/server/internal/syncvar"

// FieldSink receives replicated field changes as they are committed.
// The output system drains it once per tick.
type FieldSink interface {
	QueueUpdate(u syncvar.FieldUpdate)
}

// State is the authoritative world: the entity pool and every live entity.
// It owns the single mutation authority. Single-goroutine use (game loop).
type State struct {
	auth *syncvar.Authority
	sink FieldSink

	generations []uint32
	freeList    []uint32
	nextIndex   uint32

	entities     map[EntityID]*Entity
	order        []EntityID // spawn order, for deterministic iteration
	destroyQueue []EntityID
}

// NewState creates an empty world. sink may be nil when nothing observes
// (offline tests).
func NewState(sink FieldSink) *State {
	return &State{
		auth:     syncvar.NewAuthority(),
		sink:     sink,
		entities: make(map[EntityID]*Entity, 64),
	}
}

// Authority returns the world's mutation token. Only authoritative code
// paths (the host's systems) may hold it.
func (s *State) Authority() *syncvar.Authority { return s.auth }

// EntitySpec is the input to Spawn.
type EntitySpec struct {
	Name        string
	Kind        Kind
	ArchetypeID int32
	X, Y        int32
	MoveSpeed   int32
	MaxHP       int32
	SessionID   uint64
}

// Spawn creates a live entity at full health and wires its synchronized
// fields to the replication sink.
func (s *State) Spawn(spec EntitySpec) *Entity {
	id := s.allocate()
	e := &Entity{
		ID:          id,
		Name:        spec.Name,
		Kind:        spec.Kind,
		ArchetypeID: spec.ArchetypeID,
		X:           spec.X,
		Y:           spec.Y,
		MoveSpeed:   spec.MoveSpeed,
		MaxHP:       spec.MaxHP,
		HP:          syncvar.NewVar(s.auth, spec.MaxHP),
		Life:        syncvar.NewVar(s.auth, LifeAlive),
		Hate:        nil, // allocated on first hate
		SessionID:   spec.SessionID,
	}
	if s.sink != nil {
		hp, life := e.HP, e.Life
		eid := uint64(id)
		hp.OnChange(func(_, nv int32) {
			s.sink.QueueUpdate(syncvar.FieldUpdate{
				Entity: eid, Field: FieldHP, Value: int64(nv), Seq: hp.Seq(),
			})
		})
		life.OnChange(func(_, nv LifeState) {
			s.sink.QueueUpdate(syncvar.FieldUpdate{
				Entity: eid, Field: FieldLife, Value: int64(nv), Seq: life.Seq(),
			})
		})
	}
	s.entities[id] = e
	s.order = append(s.order, id)
	return e
}

// Get returns the entity, or nil when the ID is stale or unknown.
func (s *State) Get(id EntityID) *Entity {
	if !s.Exists(id) {
		return nil
	}
	return s.entities[id]
}

// Exists reports whether the ID refers to a live (not destroyed) entity.
func (s *State) Exists(id EntityID) bool {
	idx := id.Index()
	if idx >= s.nextIndex {
		return false
	}
	return s.generations[idx] == id.Generation()
}

// All visits every live entity in spawn order.
func (s *State) All(fn func(*Entity)) {
	for _, id := range s.order {
		if e, ok := s.entities[id]; ok {
			fn(e)
		}
	}
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (s *State) MarkForDestruction(id EntityID) {
	s.destroyQueue = append(s.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and returns their IDs.
// Called by CleanupSystem at the end of each tick.
func (s *State) FlushDestroyQueue() []EntityID {
	if len(s.destroyQueue) == 0 {
		return nil
	}
	destroyed := make([]EntityID, 0, len(s.destroyQueue))
	for _, id := range s.destroyQueue {
		if s.Exists(id) {
			s.destroy(id)
			destroyed = append(destroyed, id)
		}
	}
	s.destroyQueue = s.destroyQueue[:0]
	return destroyed
}

func (s *State) allocate() EntityID {
	if len(s.freeList) > 0 {
		idx := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		return NewEntityID(idx, s.generations[idx])
	}
	idx := s.nextIndex
	s.nextIndex++
	if int(idx) >= len(s.generations) {
		s.generations = append(s.generations, 0)
	}
	return NewEntityID(idx, s.generations[idx])
}

func (s *State) destroy(id EntityID) {
	idx := id.Index()
	if idx >= s.nextIndex || s.generations[idx] != id.Generation() {
		return // already destroyed (stale reference)
	}
	s.generations[idx]++
	s.freeList = append(s.freeList, idx)
	delete(s.entities, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ValidTarget is the shared validity predicate for hostile targeting: the
// target must exist, be hostile to the observer, be alive, and not be
// hidden from the observer's detection.
func (s *State) ValidTarget(observer, target *Entity) bool {
	if target == nil || !s.Exists(target.ID) {
		return false
	}
	if !observer.Hostile(target) {
		return false
	}
	if target.Life.Get() != LifeAlive {
		return false
	}
	if target.Stealthed {
		return false
	}
	return true
}
