package system

import "github.com/bossraid/server/internal/world"

// Hate bookkeeping for AI aggro. Hate accumulates weighted by damage dealt;
// the cached AggroTarget is refreshed whenever the maximum shifts.

// AddHate raises the victim's hate toward the attacker and refreshes the
// cached aggro target when the attacker overtakes it.
func AddHate(victim *world.Entity, attacker world.EntityID, amount int32) {
	if victim.Hate == nil {
		victim.Hate = make(map[world.EntityID]int32, 4)
	}
	victim.Hate[attacker] += amount
	if victim.AggroTarget.IsZero() || victim.Hate[attacker] >= victim.Hate[victim.AggroTarget] {
		victim.AggroTarget = attacker
	}
}

// MaxHateTarget returns the entity with the highest accumulated hate.
// Ties break toward the lower entity ID so selection stays deterministic.
func MaxHateTarget(e *world.Entity) world.EntityID {
	var best world.EntityID
	var bestHate int32 = -1
	for id, hate := range e.Hate {
		if hate > bestHate || (hate == bestHate && id < best) {
			best = id
			bestHate = hate
		}
	}
	return best
}

// RemoveHate drops one entry and invalidates the cache if it pointed there.
func RemoveHate(e *world.Entity, target world.EntityID) {
	delete(e.Hate, target)
	if e.AggroTarget == target {
		e.AggroTarget = MaxHateTarget(e)
	}
}

// ClearHate wipes the whole list. Called when the entity leaves combat or dies.
func ClearHate(e *world.Entity) {
	e.Hate = nil
	e.AggroTarget = 0
}
