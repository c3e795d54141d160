package action

import (
	"github.com/bossraid/server/internal/data"
	"github.com/bossraid/server/internal/scripting"
	"github.com/bossraid/server/internal/world"
)

// resolveTargets maps an instance's target hints (or area) to the entities
// the effect will touch. Targets that fail the validity predicate are
// skipped, not errors. Resolution runs twice per instance: provisionally at
// start and for real at the execution-time boundary.
func (c *Controller) resolveTargets(e *world.Entity, inst *Instance) []world.EntityID {
	def := inst.def
	switch def.Kind {
	case data.KindHeal, data.KindBuff:
		return c.resolveFriendly(e, inst)
	case data.KindArea:
		return c.resolveArea(e, def)
	default:
		return c.resolveHostile(e, inst, def)
	}
}

func (c *Controller) resolveFriendly(e *world.Entity, inst *Instance) []world.EntityID {
	if len(inst.hints) == 0 {
		return []world.EntityID{e.ID} // self-target by default
	}
	var out []world.EntityID
	for _, id := range inst.hints {
		t := c.world.Get(id)
		if t == nil || t.Hostile(e) || !t.Alive() {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (c *Controller) resolveHostile(e *world.Entity, inst *Instance, def *data.ActionDefinition) []world.EntityID {
	reach := def.Range
	if reach < 1 {
		reach = 1
	}
	var out []world.EntityID
	for _, id := range inst.hints {
		t := c.world.Get(id)
		if !c.world.ValidTarget(e, t) {
			continue
		}
		if world.Chebyshev(e, t) > reach {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (c *Controller) resolveArea(e *world.Entity, def *data.ActionDefinition) []world.EntityID {
	var out []world.EntityID
	c.world.All(func(t *world.Entity) {
		if t.ID == e.ID {
			return
		}
		if world.Chebyshev(e, t) > def.Range {
			return
		}
		if c.world.ValidTarget(e, t) {
			out = append(out, t.ID)
			return
		}
		// Friendly fire pulls allies into the blast as well.
		if def.FriendlyFire && !t.Hostile(e) && t.Alive() {
			out = append(out, t.ID)
		}
	})
	return out
}

// applyEffect dispatches the closed set of effect variants through one
// function. Runs exactly once per instance, at the execution-time boundary.
func (c *Controller) applyEffect(e *world.Entity, inst *Instance) {
	def := inst.def
	targets := c.resolveTargets(e, inst)
	if len(targets) == 0 {
		return
	}

	switch def.Kind {
	case data.KindMelee, data.KindRanged, data.KindArea:
		amount := def.Amount
		if c.calc != nil {
			amount = c.calc.CalcDamage(scripting.DamageContext{
				ActionID: def.ID,
				Kind:     def.Kind.String(),
				Amount:   def.Amount,
			})
		}
		for _, id := range targets {
			c.health.ApplyDelta(id, e.ID, -amount)
		}
	case data.KindHeal:
		for _, id := range targets {
			c.health.ApplyDelta(id, e.ID, def.Amount)
		}
	case data.KindBuff:
		expires := c.clock() + def.BuffDuration
		for _, id := range targets {
			st := c.state(id)
			st.buffs = append(st.buffs, Buff{
				ActionID:  def.ID,
				Strength:  def.Amount,
				ExpiresAt: expires,
			})
		}
	}
}
