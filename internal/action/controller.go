package action

import (
	"time"

	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/data"
	"github.com/bossraid/server/internal/scripting"
	"github.com/bossraid/server/internal/world"
	"go.uber.org/zap"
)

// HealthApplier routes effect amounts into the authority-synchronized
// health pipeline. Negative amounts damage, positive heal.
type HealthApplier interface {
	ApplyDelta(target, source world.EntityID, amount int32)
}

// DamageCalc turns a configured base amount into final damage. The Lua
// engine implements it; a nil calc uses the base amount unchanged.
type DamageCalc interface {
	CalcDamage(ctx scripting.DamageContext) int32
}

// Controller serializes each entity's ability executions and enforces reuse
// timers. Player- and AI-driven entities go through the identical path.
// Game-loop goroutine only.
type Controller struct {
	world  *world.State
	defs   *data.ActionTable
	bus    *event.Bus
	clock  func() time.Duration
	health HealthApplier
	calc   DamageCalc
	log    *zap.Logger

	states map[world.EntityID]*entityState
}

func NewController(ws *world.State, defs *data.ActionTable, bus *event.Bus, clock func() time.Duration, health HealthApplier, calc DamageCalc, log *zap.Logger) *Controller {
	return &Controller{
		world:  ws,
		defs:   defs,
		bus:    bus,
		clock:  clock,
		health: health,
		calc:   calc,
		log:    log,
		states: make(map[world.EntityID]*entityState),
	}
}

// SetHealth wires the health pipeline after construction. The controller
// and the health service reference each other, so one side binds late.
func (c *Controller) SetHealth(h HealthApplier) { c.health = h }

func (c *Controller) state(id world.EntityID) *entityState {
	st, ok := c.states[id]
	if !ok {
		st = &entityState{cooldowns: make(map[int32]time.Duration)}
		c.states[id] = st
	}
	return st
}

// Request validates the cooldown and queues a new instance. If the queue was
// empty the instance starts immediately; otherwise it waits its turn and the
// cooldown timestamp is not recorded until it actually starts. A request
// denied with ErrOnCooldown mutates nothing.
func (c *Controller) Request(e *world.Entity, defID int32, targets []world.EntityID) (*Instance, error) {
	def := c.defs.Get(defID)
	if def == nil {
		return nil, ErrUnknownAction
	}
	st := c.state(e.ID)

	if !c.offCooldown(st, def) {
		return nil, ErrOnCooldown
	}
	if def.ReuseTime > 0 {
		// A queued instance of the same definition has not charged the
		// cooldown yet, but it will at its start; a second one behind it
		// would then start inside the reuse window.
		for _, queued := range st.queue {
			if !queued.started && queued.def.ID == def.ID {
				return nil, ErrOnCooldown
			}
		}
	}

	inst := &Instance{def: def, hints: targets}
	wasEmpty := len(st.queue) == 0
	st.queue = append(st.queue, inst)
	if wasEmpty {
		c.start(e, st, inst)
	}
	return inst, nil
}

func (c *Controller) offCooldown(st *entityState, def *data.ActionDefinition) bool {
	if def.ReuseTime <= 0 {
		return true
	}
	last, ok := st.cooldowns[def.ID]
	return !ok || c.clock()-last >= def.ReuseTime
}

// startNext starts the first queued instance whose definition is still off
// cooldown. An instance whose cooldown got charged while it waited is
// dropped as cancelled rather than started inside the reuse window.
func (c *Controller) startNext(e *world.Entity, st *entityState) {
	for len(st.queue) > 0 {
		next := st.queue[0]
		if c.offCooldown(st, next.def) {
			c.start(e, st, next)
			return
		}
		c.log.Debug("queued action still cooling, dropped",
			zap.Uint64("entity", uint64(e.ID)),
			zap.Int32("action", next.def.ID),
		)
		c.finish(e, st, next, true)
	}
}

// start begins an instance: the cooldown is charged here, not at request
// time, and the provisional target resolution fires the start event.
func (c *Controller) start(e *world.Entity, st *entityState, inst *Instance) {
	inst.started = true
	st.cooldowns[inst.def.ID] = c.clock()
	inst.provisional = c.resolveTargets(e, inst)

	if err := event.Publish(c.bus, event.ActionStarted{
		Entity:      e.ID,
		ActionID:    inst.def.ID,
		Targets:     inst.provisional,
		AnimTrigger: inst.def.AnimTrigger,
	}); err != nil {
		c.log.Error("action start event", zap.Error(err))
	}
}

// Advance moves the entity's active instance forward by dt. Called once per
// simulation tick for every entity with a non-empty queue. The effect fires
// exactly once when elapsed time crosses the execution offset, even with
// irregular ticks. When the active instance runs out its duration, the next
// queued instance starts within the same tick.
func (c *Controller) Advance(e *world.Entity, dt time.Duration) {
	st, ok := c.states[e.ID]
	if !ok || len(st.queue) == 0 {
		return
	}
	active := st.queue[0]
	active.elapsed += dt

	if !active.fired && active.elapsed >= active.def.ExecOffset {
		active.fired = true
		c.applyEffect(e, active)
	}

	if active.elapsed >= active.def.Duration {
		c.finish(e, st, active, false)
		c.startNext(e, st)
	}
}

// Cancel ends the given instance. An active instance ends without its effect
// firing (if it has not fired yet); its cooldown stays as charged at start.
// A queued instance is removed without touching the cooldown table. Cancel
// on an already-ended instance is a no-op.
func (c *Controller) Cancel(e *world.Entity, inst *Instance) {
	st, ok := c.states[e.ID]
	if !ok || inst == nil || inst.ended {
		return
	}
	for idx, queued := range st.queue {
		if queued != inst {
			continue
		}
		if idx == 0 && inst.started {
			c.finish(e, st, inst, true)
			c.startNext(e, st)
		} else {
			inst.ended = true
			st.queue = append(st.queue[:idx], st.queue[idx+1:]...)
		}
		return
	}
}

// CancelActive cancels the entity's currently active instance, if any.
// Queued instances are untouched; the next one starts immediately.
func (c *Controller) CancelActive(e *world.Entity) {
	st, ok := c.states[e.ID]
	if !ok || len(st.queue) == 0 || !st.queue[0].started {
		return
	}
	c.Cancel(e, st.queue[0])
}

// CancelAll drops the entity's whole queue, active instance included.
// Used when an entity leaves the Alive state.
func (c *Controller) CancelAll(e *world.Entity) {
	st, ok := c.states[e.ID]
	if !ok {
		return
	}
	for len(st.queue) > 0 {
		active := st.queue[0]
		if active.started {
			c.finish(e, st, active, true)
		} else {
			active.ended = true
			st.queue = st.queue[1:]
		}
	}
}

func (c *Controller) finish(e *world.Entity, st *entityState, inst *Instance, cancelled bool) {
	inst.ended = true
	st.queue = st.queue[1:]
	if err := event.Publish(c.bus, event.ActionEnded{
		Entity:    e.ID,
		ActionID:  inst.def.ID,
		Cancelled: cancelled,
	}); err != nil {
		c.log.Error("action end event", zap.Error(err))
	}
}

// Busy reports whether the entity has an active or queued instance.
func (c *Controller) Busy(id world.EntityID) bool {
	st, ok := c.states[id]
	return ok && len(st.queue) > 0
}

// QueueLen returns the entity's queue length (active instance included).
func (c *Controller) QueueLen(id world.EntityID) int {
	st, ok := c.states[id]
	if !ok {
		return 0
	}
	return len(st.queue)
}

// ActiveCount returns how many of the entity's instances are started and
// not ended. The queue invariant keeps this at most 1.
func (c *Controller) ActiveCount(id world.EntityID) int {
	st, ok := c.states[id]
	if !ok {
		return 0
	}
	n := 0
	for _, inst := range st.queue {
		if inst.started && !inst.ended {
			n++
		}
	}
	return n
}

// CooldownStart returns the sim time the definition last successfully
// started for the entity.
func (c *Controller) CooldownStart(id world.EntityID, defID int32) (time.Duration, bool) {
	st, ok := c.states[id]
	if !ok {
		return 0, false
	}
	t, ok := st.cooldowns[defID]
	return t, ok
}

// Ready reports whether the definition is off cooldown for the entity.
func (c *Controller) Ready(id world.EntityID, defID int32) bool {
	def := c.defs.Get(defID)
	if def == nil {
		return false
	}
	st, ok := c.states[id]
	if !ok {
		return true
	}
	return c.offCooldown(st, def)
}

// ActiveBuffs returns the entity's unexpired buffs in scripting form.
func (c *Controller) ActiveBuffs(id world.EntityID) []scripting.BuffEntry {
	st, ok := c.states[id]
	if !ok || len(st.buffs) == 0 {
		return nil
	}
	now := c.clock()
	out := make([]scripting.BuffEntry, 0, len(st.buffs))
	for _, b := range st.buffs {
		if b.ExpiresAt > now {
			out = append(out, scripting.BuffEntry{ActionID: b.ActionID, Strength: b.Strength})
		}
	}
	return out
}

// ExpireBuffs drops buffs past their expiry. Called once per tick.
func (c *Controller) ExpireBuffs() {
	now := c.clock()
	for _, st := range c.states {
		if len(st.buffs) == 0 {
			continue
		}
		kept := st.buffs[:0]
		for _, b := range st.buffs {
			if b.ExpiresAt > now {
				kept = append(kept, b)
			}
		}
		st.buffs = kept
	}
}

// Forget drops all runtime state for a destroyed entity.
func (c *Controller) Forget(id world.EntityID) {
	delete(c.states, id)
}
