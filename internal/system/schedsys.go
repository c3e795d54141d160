package system

import (
	"time"

	"github.com/bossraid/server/internal/core/sched"
	sys "github.com/bossraid/server/internal/core/system"
)

// SchedSystem advances the simulation clock and fires due scheduled
// callbacks (reconnect retries, despawn timers). Runs in PreUpdate so a
// callback's world changes are visible to the same tick's Update phase.
type SchedSystem struct {
	sched *sched.Scheduler
}

func NewSchedSystem(sc *sched.Scheduler) *SchedSystem {
	return &SchedSystem{sched: sc}
}

func (s *SchedSystem) Phase() sys.Phase { return sys.PhasePreUpdate }

func (s *SchedSystem) Update(dt time.Duration) {
	s.sched.Advance(dt)
}
