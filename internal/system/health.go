package system

import (
	"github.com/bossraid/server/internal/action"
	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/scripting"
	"github.com/bossraid/server/internal/world"
	"go.uber.org/zap"
)

// DamageModifier lets active buffs on the target scale incoming damage.
// The Lua engine implements it; nil falls back to a flat subtraction.
type DamageModifier interface {
	ModifyIncoming(amount int32, buffs []scripting.BuffEntry) int32
}

// Health is the single write path for hit points. Every damage and heal in
// the simulation funnels through ApplyDelta so clamping, buff mitigation,
// hate accumulation, and life-state transitions happen in exactly one place.
type Health struct {
	world *world.State
	bus   *event.Bus
	ctrl  *action.Controller
	mod   DamageModifier
	log   *zap.Logger
}

func NewHealth(ws *world.State, bus *event.Bus, ctrl *action.Controller, mod DamageModifier, log *zap.Logger) *Health {
	return &Health{world: ws, bus: bus, ctrl: ctrl, mod: mod, log: log}
}

// ApplyDelta changes the target's HP by amount (negative damages, positive
// heals). HP clamps to [0, MaxHP]. Crossing zero flips the life state
// exactly once: players faint, AI entities die. Healing a fainted player
// revives them. Damage to a non-alive target is ignored.
func (h *Health) ApplyDelta(target, source world.EntityID, amount int32) {
	e := h.world.Get(target)
	if e == nil || amount == 0 {
		return
	}

	if amount < 0 {
		h.applyDamage(e, source, -amount)
	} else {
		h.applyHeal(e, amount)
	}
}

func (h *Health) applyDamage(e *world.Entity, source world.EntityID, magnitude int32) {
	if e.Life.Get() != world.LifeAlive {
		return
	}

	if buffs := h.ctrl.ActiveBuffs(e.ID); len(buffs) > 0 {
		magnitude = h.mitigate(magnitude, buffs)
	}
	if magnitude <= 0 {
		return
	}

	hp := e.HP.Get()
	newHP := hp - magnitude
	if newHP < 0 {
		newHP = 0
	}
	if err := e.HP.Set(h.world.Authority(), newHP); err != nil {
		h.log.Error("hp write denied", zap.Uint64("entity", uint64(e.ID)), zap.Error(err))
		return
	}

	// Hate is weighted by damage actually dealt, not the raw amount.
	if e.Kind == world.KindMonster {
		if src := h.world.Get(source); src != nil && src.Hostile(e) {
			AddHate(e, source, hp-newHP)
		}
	}

	if hp > 0 && newHP == 0 {
		next := world.LifeFainted
		if e.Kind == world.KindMonster {
			next = world.LifeDead
		}
		h.setLife(e, next)
	}
}

func (h *Health) applyHeal(e *world.Entity, amount int32) {
	if e.Life.Get() == world.LifeDead {
		return
	}

	if e.Kind == world.KindPlayer && e.Life.Get() == world.LifeFainted {
		h.setLife(e, world.LifeAlive)
	}

	hp := e.HP.Get() + amount
	if hp > e.MaxHP {
		hp = e.MaxHP
	}
	if err := e.HP.Set(h.world.Authority(), hp); err != nil {
		h.log.Error("hp write denied", zap.Uint64("entity", uint64(e.ID)), zap.Error(err))
	}
}

func (h *Health) mitigate(magnitude int32, buffs []scripting.BuffEntry) int32 {
	if h.mod != nil {
		return h.mod.ModifyIncoming(magnitude, buffs)
	}
	for _, b := range buffs {
		magnitude -= b.Strength
	}
	if magnitude < 0 {
		magnitude = 0
	}
	return magnitude
}

func (h *Health) setLife(e *world.Entity, next world.LifeState) {
	old := e.Life.Get()
	if old == next {
		return
	}
	if err := e.Life.Set(h.world.Authority(), next); err != nil {
		h.log.Error("life write denied", zap.Uint64("entity", uint64(e.ID)), zap.Error(err))
		return
	}
	if err := event.Publish(h.bus, event.LifeStateChanged{Entity: e.ID, Old: old, New: next}); err != nil {
		h.log.Error("life event", zap.Error(err))
	}
}
