package system

import (
	"time"

	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/world"
)

// RegenSystem restores a fixed amount of HP to wounded alive players on a
// fixed interval. Runs in the PostUpdate phase. The interval accumulates
// across ticks so a slow tick never skips a pulse.
type RegenSystem struct {
	world    *world.State
	health   *Health
	interval time.Duration
	amount   int32
	acc      time.Duration
}

func NewRegenSystem(ws *world.State, health *Health, interval time.Duration, amount int32) *RegenSystem {
	return &RegenSystem{world: ws, health: health, interval: interval, amount: amount}
}

func (s *RegenSystem) Phase() sys.Phase { return sys.PhasePostUpdate }

func (s *RegenSystem) Update(dt time.Duration) {
	if s.interval <= 0 || s.amount <= 0 {
		return
	}
	s.acc += dt
	for s.acc >= s.interval {
		s.acc -= s.interval
		s.world.All(func(e *world.Entity) {
			if e.Kind != world.KindPlayer || !e.Alive() {
				return
			}
			if e.HP.Get() < e.MaxHP {
				s.health.ApplyDelta(e.ID, e.ID, s.amount)
			}
		})
	}
}
