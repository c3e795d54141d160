package action

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/data"
	"github.com/bossraid/server/internal/world"
	"go.uber.org/zap"
)

const testActionYAML = `
- id: 1
  name: Jab
  kind: melee
  duration_ms: 800
  exec_offset_ms: 400
  reuse_ms: 0
  range: 1
  amount: 40
  anim_trigger: atk_jab

- id: 2
  name: Smash
  kind: melee
  duration_ms: 1000
  exec_offset_ms: 500
  reuse_ms: 4000
  range: 1
  amount: 110
  anim_trigger: atk_smash

- id: 3
  name: Guard
  kind: buff
  duration_ms: 600
  exec_offset_ms: 300
  reuse_ms: 0
  buff_ms: 5000
  range: 0
  amount: 15
  anim_trigger: cast_guard
`

func testActionTable(t *testing.T) *data.ActionTable {
	t.Helper()
	p := filepath.Join(t.TempDir(), "actions.yaml")
	if err := os.WriteFile(p, []byte(testActionYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := data.LoadActionTable(p)
	if err != nil {
		t.Fatalf("load action table: %v", err)
	}
	return tbl
}

type healthCall struct {
	target, source world.EntityID
	amount         int32
}

type recordingHealth struct {
	calls []healthCall
}

func (h *recordingHealth) ApplyDelta(target, source world.EntityID, amount int32) {
	h.calls = append(h.calls, healthCall{target, source, amount})
}

type fixture struct {
	world   *world.State
	bus     *event.Bus
	ctrl    *Controller
	health  *recordingHealth
	now     time.Duration
	player  *world.Entity
	monster *world.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		world:  world.NewState(nil),
		bus:    event.NewBus(nil),
		health: &recordingHealth{},
	}
	f.ctrl = NewController(
		f.world, testActionTable(t), f.bus,
		func() time.Duration { return f.now },
		f.health, nil, zap.NewNop(),
	)
	f.player = f.world.Spawn(world.EntitySpec{Name: "hero", Kind: world.KindPlayer, MaxHP: 100})
	f.monster = f.world.Spawn(world.EntitySpec{Name: "imp", Kind: world.KindMonster, X: 1, MaxHP: 150})
	return f
}

// advance moves both the sim clock and the entity's active instance.
func (f *fixture) advance(e *world.Entity, dt time.Duration) {
	f.now += dt
	f.ctrl.Advance(e, dt)
}

func TestRequestUnknownAction(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Request(f.player, 99, nil); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
}

func TestAtMostOneActiveInstance(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	for i := 0; i < 3; i++ {
		if _, err := f.ctrl.Request(f.player, 1, targets); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if n := f.ctrl.QueueLen(f.player.ID); n != 3 {
		t.Fatalf("queue len = %d, want 3", n)
	}

	for i := 0; i < 10; i++ {
		if n := f.ctrl.ActiveCount(f.player.ID); n > 1 {
			t.Fatalf("active count = %d at step %d", n, i)
		}
		f.advance(f.player, 300*time.Millisecond)
	}
}

func TestCooldownDeniedRequestMutatesNothing(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	if _, err := f.ctrl.Request(f.player, 2, targets); err != nil {
		t.Fatalf("first request: %v", err)
	}
	start, ok := f.ctrl.CooldownStart(f.player.ID, 2)
	if !ok {
		t.Fatal("cooldown not charged at start")
	}

	f.advance(f.player, 1100*time.Millisecond) // finishes, cooldown still running

	if _, err := f.ctrl.Request(f.player, 2, targets); !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("err = %v, want ErrOnCooldown", err)
	}
	if n := f.ctrl.QueueLen(f.player.ID); n != 0 {
		t.Fatalf("denied request queued: len = %d", n)
	}
	if got, _ := f.ctrl.CooldownStart(f.player.ID, 2); got != start {
		t.Fatalf("denied request moved cooldown: %v -> %v", start, got)
	}
}

func TestQueuedInstanceChargesCooldownAtItsStart(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	if _, err := f.ctrl.Request(f.player, 1, targets); err != nil {
		t.Fatalf("request jab: %v", err)
	}
	if _, err := f.ctrl.Request(f.player, 2, targets); err != nil {
		t.Fatalf("request smash: %v", err)
	}
	if _, ok := f.ctrl.CooldownStart(f.player.ID, 2); ok {
		t.Fatal("queued instance charged cooldown before starting")
	}

	f.advance(f.player, 800*time.Millisecond) // jab finishes, smash starts same tick

	got, ok := f.ctrl.CooldownStart(f.player.ID, 2)
	if !ok {
		t.Fatal("cooldown not charged when queued instance started")
	}
	if got != 800*time.Millisecond {
		t.Fatalf("cooldown charged at %v, want 800ms", got)
	}
}

func TestSecondQueuedRequestOfSameDefinitionDenied(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	// Smash waits behind Jab, so its cooldown is not charged yet. A second
	// Smash queued now would start 800ms after the first against a 4s reuse.
	if _, err := f.ctrl.Request(f.player, 1, targets); err != nil {
		t.Fatalf("request jab: %v", err)
	}
	if _, err := f.ctrl.Request(f.player, 2, targets); err != nil {
		t.Fatalf("request smash: %v", err)
	}
	if _, err := f.ctrl.Request(f.player, 2, targets); !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("second smash request err = %v, want ErrOnCooldown", err)
	}
	if n := f.ctrl.QueueLen(f.player.ID); n != 2 {
		t.Fatalf("queue len = %d, want 2", n)
	}

	// Only one Smash effect across the whole run.
	f.advance(f.player, 800*time.Millisecond)
	f.advance(f.player, time.Second)
	smashes := 0
	for _, call := range f.health.calls {
		if call.amount == -110 {
			smashes++
		}
	}
	if smashes != 1 {
		t.Fatalf("smash fired %d times, want 1", smashes)
	}
}

func TestQueuedInstanceStillCoolingDroppedAtDequeue(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	if _, err := f.ctrl.Request(f.player, 1, targets); err != nil {
		t.Fatal(err)
	}
	queued, err := f.ctrl.Request(f.player, 2, targets)
	if err != nil {
		t.Fatal(err)
	}

	var ends []event.ActionEnded
	event.Subscribe(f.bus, func(ev event.ActionEnded) { ends = append(ends, ev) })

	// The cooldown gets charged while the instance waits its turn; at
	// dequeue it must be dropped, not started inside the reuse window.
	f.ctrl.state(f.player.ID).cooldowns[2] = f.now

	f.advance(f.player, 800*time.Millisecond) // jab ends, smash dequeues
	if queued.Started() {
		t.Fatal("cooling instance started")
	}
	if !queued.Ended() {
		t.Fatal("cooling instance not dropped")
	}
	if f.ctrl.Busy(f.player.ID) {
		t.Fatal("queue not empty after drop")
	}

	found := false
	for _, ev := range ends {
		if ev.ActionID == 2 {
			if !ev.Cancelled {
				t.Fatalf("dropped instance ended as %+v, want cancelled", ev)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("no end event for the dropped instance")
	}

	f.advance(f.player, 2*time.Second)
	for _, call := range f.health.calls {
		if call.amount == -110 {
			t.Fatal("dropped instance applied its effect")
		}
	}
}

func TestEffectFiresExactlyOnceAcrossIrregularTicks(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	if _, err := f.ctrl.Request(f.player, 1, targets); err != nil {
		t.Fatal(err)
	}

	f.advance(f.player, 300*time.Millisecond) // 300 < 400: nothing yet
	if len(f.health.calls) != 0 {
		t.Fatalf("effect fired early: %v", f.health.calls)
	}

	f.advance(f.player, 250*time.Millisecond) // 550 crosses 400: fire once
	if len(f.health.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(f.health.calls))
	}
	call := f.health.calls[0]
	if call.target != f.monster.ID || call.source != f.player.ID || call.amount != -40 {
		t.Fatalf("call = %+v", call)
	}

	f.advance(f.player, 300*time.Millisecond) // past duration: no refire
	if len(f.health.calls) != 1 {
		t.Fatalf("effect fired again: %d calls", len(f.health.calls))
	}
	if f.ctrl.Busy(f.player.ID) {
		t.Fatal("instance did not finish")
	}
}

func TestQueueAdvancesWithinSameTick(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	a, _ := f.ctrl.Request(f.player, 1, targets)
	b, _ := f.ctrl.Request(f.player, 2, targets)

	f.advance(f.player, 800*time.Millisecond)
	if !a.Ended() {
		t.Fatal("first instance did not end")
	}
	if !b.Started() {
		t.Fatal("second instance did not start in the same tick")
	}
}

func TestCancelActiveKeepsCooldownCharge(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	inst, _ := f.ctrl.Request(f.player, 2, targets)
	f.advance(f.player, 200*time.Millisecond) // before exec offset
	f.ctrl.Cancel(f.player, inst)

	if len(f.health.calls) != 0 {
		t.Fatal("cancelled instance still applied its effect")
	}
	if _, ok := f.ctrl.CooldownStart(f.player.ID, 2); !ok {
		t.Fatal("cancel refunded the start charge")
	}
	if _, err := f.ctrl.Request(f.player, 2, targets); !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("err = %v, want ErrOnCooldown after cancel", err)
	}
}

func TestCancelQueuedLeavesCooldownUntouched(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	f.ctrl.Request(f.player, 1, targets)
	queued, _ := f.ctrl.Request(f.player, 2, targets)
	f.ctrl.Cancel(f.player, queued)

	if _, ok := f.ctrl.CooldownStart(f.player.ID, 2); ok {
		t.Fatal("cancelled queued instance charged a cooldown")
	}

	f.advance(f.player, 2*time.Second)
	for _, c := range f.health.calls {
		if c.amount == -110 {
			t.Fatal("cancelled queued instance applied its effect")
		}
	}
	if _, err := f.ctrl.Request(f.player, 2, targets); err != nil {
		t.Fatalf("smash should be ready after queued cancel: %v", err)
	}
}

func TestCancelEndedInstanceIsNoOp(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	inst, _ := f.ctrl.Request(f.player, 1, targets)
	f.advance(f.player, time.Second)
	if !inst.Ended() {
		t.Fatal("instance should have ended")
	}

	ends := 0
	event.Subscribe(f.bus, func(event.ActionEnded) { ends++ })
	f.ctrl.Cancel(f.player, inst)
	if ends != 0 {
		t.Fatal("cancel of ended instance published an end event")
	}
}

func TestStartAndEndEvents(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	var starts []event.ActionStarted
	var ends []event.ActionEnded
	event.Subscribe(f.bus, func(ev event.ActionStarted) { starts = append(starts, ev) })
	event.Subscribe(f.bus, func(ev event.ActionEnded) { ends = append(ends, ev) })

	f.ctrl.Request(f.player, 1, targets)
	if len(starts) != 1 || starts[0].AnimTrigger != "atk_jab" {
		t.Fatalf("starts = %+v", starts)
	}
	if len(starts[0].Targets) != 1 || starts[0].Targets[0] != f.monster.ID {
		t.Fatalf("provisional targets = %v", starts[0].Targets)
	}

	f.advance(f.player, time.Second)
	if len(ends) != 1 || ends[0].Cancelled {
		t.Fatalf("ends = %+v", ends)
	}
}

func TestBuffAppliesAndExpires(t *testing.T) {
	f := newFixture(t)

	f.ctrl.Request(f.player, 3, nil) // self-target buff
	f.advance(f.player, 400*time.Millisecond)

	buffs := f.ctrl.ActiveBuffs(f.player.ID)
	if len(buffs) != 1 || buffs[0].Strength != 15 {
		t.Fatalf("buffs = %+v", buffs)
	}

	f.now += 6 * time.Second // past buff_ms
	if got := f.ctrl.ActiveBuffs(f.player.ID); len(got) != 0 {
		t.Fatalf("expired buff still active: %+v", got)
	}
	f.ctrl.ExpireBuffs()
}

func TestCancelAllDropsWholeQueue(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	f.ctrl.Request(f.player, 1, targets)
	f.ctrl.Request(f.player, 2, targets)
	f.ctrl.CancelAll(f.player)

	if f.ctrl.Busy(f.player.ID) {
		t.Fatal("queue not empty after CancelAll")
	}
	f.advance(f.player, 2*time.Second)
	if len(f.health.calls) != 0 {
		t.Fatalf("cancelled actions applied effects: %v", f.health.calls)
	}
}

func TestDeadTargetSkippedAtExecution(t *testing.T) {
	f := newFixture(t)
	targets := []world.EntityID{f.monster.ID}

	f.ctrl.Request(f.player, 1, targets)
	// Target dies between start and the execution boundary.
	if err := f.monster.Life.Set(f.world.Authority(), world.LifeDead); err != nil {
		t.Fatal(err)
	}
	f.advance(f.player, 500*time.Millisecond)

	if len(f.health.calls) != 0 {
		t.Fatalf("effect applied to dead target: %v", f.health.calls)
	}
}
