package system

import (
	"time"

	"github.com/bossraid/server/internal/action"
	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/world"
)

// ActionSystem advances every busy entity's action queue each tick and
// expires finished buffs. Runs in the Update phase, before the AI decides.
type ActionSystem struct {
	world *world.State
	ctrl  *action.Controller
}

func NewActionSystem(ws *world.State, ctrl *action.Controller) *ActionSystem {
	return &ActionSystem{world: ws, ctrl: ctrl}
}

func (s *ActionSystem) Phase() sys.Phase { return sys.PhaseUpdate }

func (s *ActionSystem) Update(dt time.Duration) {
	s.world.All(func(e *world.Entity) {
		if s.ctrl.Busy(e.ID) {
			s.ctrl.Advance(e, dt)
		}
	})
	s.ctrl.ExpireBuffs()
}
