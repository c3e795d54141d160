package system

import (
	"testing"
	"time"

	"github.com/bossraid/server/internal/core/event"
	"go.uber.org/zap"
)

func newAIFixture(t *testing.T) (*combatFixture, *AISystem) {
	t.Helper()
	f := newCombatFixture(t)
	ai := NewAISystem(f.world, f.ctrl, f.arch, 1, zap.NewNop())
	return f, ai
}

func TestDamageDrawsAggroNextTick(t *testing.T) {
	f, ai := newAIFixture(t)
	p := f.spawnPlayer("hero", 0)
	m := f.spawnMonster(1, 1)

	var starts []event.ActionStarted
	event.Subscribe(f.bus, func(ev event.ActionStarted) { starts = append(starts, ev) })

	f.health.ApplyDelta(m.ID, p.ID, -20)
	ai.Update(100 * time.Millisecond)

	if !f.ctrl.Busy(m.ID) {
		t.Fatal("hurt monster did not act")
	}
	if len(starts) != 1 || starts[0].Entity != m.ID {
		t.Fatalf("starts = %+v", starts)
	}
	if len(starts[0].Targets) != 1 || starts[0].Targets[0] != p.ID {
		t.Fatalf("targets = %v, want attacker", starts[0].Targets)
	}
}

func TestIdleSeedsHateWithinDetectRadius(t *testing.T) {
	f, ai := newAIFixture(t)
	near := f.spawnPlayer("near", 4) // within Imp detect radius 6
	far := f.spawnPlayer("far", 20)  // outside
	m := f.spawnMonster(1, 0)

	ai.Update(100 * time.Millisecond)

	if _, ok := m.Hate[near.ID]; !ok {
		t.Fatal("nearby hostile not detected")
	}
	if _, ok := m.Hate[far.ID]; ok {
		t.Fatal("out-of-radius hostile detected")
	}
}

func TestStealthedPlayerNotDetected(t *testing.T) {
	f, ai := newAIFixture(t)
	p := f.spawnPlayer("sneak", 2)
	p.Stealthed = true
	m := f.spawnMonster(1, 0)

	ai.Update(100 * time.Millisecond)
	if len(m.Hate) != 0 {
		t.Fatalf("stealthed player detected: %v", m.Hate)
	}
}

func TestClosestHatedTargetSelected(t *testing.T) {
	f, ai := newAIFixture(t)
	farP := f.spawnPlayer("far", 5)
	nearP := f.spawnPlayer("near", 1)
	m := f.spawnMonster(1, 0)

	AddHate(m, farP.ID, 50)
	AddHate(m, nearP.ID, 10)

	ai.Update(100 * time.Millisecond)
	if m.AggroTarget != nearP.ID {
		t.Fatalf("aggro target = %v, want closest %v", m.AggroTarget, nearP.ID)
	}
}

func TestEqualDistanceTieBreaksToLowerID(t *testing.T) {
	f, ai := newAIFixture(t)
	a := f.spawnPlayer("a", 2)
	b := f.spawnPlayer("b", -2)
	m := f.spawnMonster(1, 0)
	m.AggroTarget = 0

	AddHate(m, a.ID, 10)
	AddHate(m, b.ID, 10)
	m.AggroTarget = 0 // force a fresh selection

	ai.Update(100 * time.Millisecond)
	want := a.ID
	if b.ID < a.ID {
		want = b.ID
	}
	if m.AggroTarget != want {
		t.Fatalf("aggro target = %v, want %v", m.AggroTarget, want)
	}
}

func TestBusyMonsterIssuesNoNewAction(t *testing.T) {
	f, ai := newAIFixture(t)
	p := f.spawnPlayer("hero", 1)
	m := f.spawnMonster(1, 0)
	AddHate(m, p.ID, 10)

	ai.Update(100 * time.Millisecond)
	if got := f.ctrl.QueueLen(m.ID); got != 1 {
		t.Fatalf("queue len = %d, want 1", got)
	}

	ai.Update(100 * time.Millisecond)
	if got := f.ctrl.QueueLen(m.ID); got != 1 {
		t.Fatalf("busy monster queued another action: len = %d", got)
	}
}

func TestAllAbilitiesOnCooldownWaits(t *testing.T) {
	f, ai := newAIFixture(t)
	p := f.spawnPlayer("hero", 1)
	m := f.spawnMonster(1, 0) // Imp: single ability, 1s reuse
	AddHate(m, p.ID, 10)

	ai.Update(100 * time.Millisecond)
	// Run the bite to completion; its cooldown is still running.
	f.clock.Advance(900 * time.Millisecond)
	f.ctrl.Advance(m, 900*time.Millisecond)
	if f.ctrl.Busy(m.ID) {
		t.Fatal("bite did not finish")
	}

	ai.Update(100 * time.Millisecond)
	if f.ctrl.Busy(m.ID) {
		t.Fatal("monster acted with every ability cooling down")
	}
}

func TestDeadTargetPrunedFromHate(t *testing.T) {
	f, ai := newAIFixture(t)
	p := f.spawnPlayer("hero", 1)
	m := f.spawnMonster(1, 0)
	AddHate(m, p.ID, 10)

	f.health.ApplyDelta(p.ID, m.ID, -150) // faints the player

	ai.Update(100 * time.Millisecond)
	if len(m.Hate) != 0 {
		t.Fatalf("hate not pruned: %v", m.Hate)
	}
	if f.ctrl.Busy(m.ID) {
		t.Fatal("monster attacked a fainted target")
	}
}
