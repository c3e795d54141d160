package system

import (
	"time"

	"github.com/bossraid/server/internal/action"
	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/world"
)

// CleanupSystem destroys entities queued for removal and drops their action
// runtime state. Runs last in the tick so every other system saw the entity
// for the full tick it died in.
type CleanupSystem struct {
	world *world.State
	ctrl  *action.Controller
}

func NewCleanupSystem(ws *world.State, ctrl *action.Controller) *CleanupSystem {
	return &CleanupSystem{world: ws, ctrl: ctrl}
}

func (s *CleanupSystem) Phase() sys.Phase { return sys.PhaseCleanup }

func (s *CleanupSystem) Update(time.Duration) {
	for _, id := range s.world.FlushDestroyQueue() {
		s.ctrl.Forget(id)
	}
}
