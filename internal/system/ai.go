package system

import (
	"errors"
	"math/rand"
	"time"

	"github.com/bossraid/server/internal/action"
	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/data"
	"github.com/bossraid/server/internal/world"
	"go.uber.org/zap"
)

// AISystem drives every alive AI entity once per tick through a fixed
// priority list: attack when anything is hated, otherwise idle and watch for
// hostiles. Decisions submit through the same action controller players use,
// so AI abilities obey cooldowns and the one-active-instance rule for free.
// Registered after ActionSystem within the Update phase.
type AISystem struct {
	world *world.State
	ctrl  *action.Controller
	arch  *data.ArchetypeTable
	rng   *rand.Rand
	log   *zap.Logger
}

// NewAISystem creates the AI driver. seed fixes the ability-selection RNG so
// a run can be replayed.
func NewAISystem(ws *world.State, ctrl *action.Controller, arch *data.ArchetypeTable, seed int64, log *zap.Logger) *AISystem {
	return &AISystem{
		world: ws,
		ctrl:  ctrl,
		arch:  arch,
		rng:   rand.New(rand.NewSource(seed)),
		log:   log,
	}
}

func (s *AISystem) Phase() sys.Phase { return sys.PhaseUpdate }

func (s *AISystem) Update(dt time.Duration) {
	s.world.All(func(e *world.Entity) {
		if e.Kind != world.KindMonster || !e.Alive() {
			return
		}
		s.prune(e)
		if len(e.Hate) > 0 {
			s.attack(e)
		} else {
			s.idle(e)
		}
	})
}

// prune drops hate entries whose targets are gone or no longer valid.
func (s *AISystem) prune(e *world.Entity) {
	for id := range e.Hate {
		if !s.world.ValidTarget(e, s.world.Get(id)) {
			RemoveHate(e, id)
		}
	}
}

// attack picks a target from the hate list and requests one off-cooldown
// ability against it. An entity mid-action keeps its target but issues
// nothing new; when every ability is cooling down the entity simply waits.
func (s *AISystem) attack(e *world.Entity) {
	target := s.selectTarget(e)
	if target == nil {
		return
	}
	e.AggroTarget = target.ID

	if s.ctrl.Busy(e.ID) {
		return
	}

	arch := s.arch.Get(e.ArchetypeID)
	if arch == nil {
		return
	}
	ready := make([]int32, 0, len(arch.Abilities))
	for _, id := range arch.Abilities {
		if s.ctrl.Ready(e.ID, id) {
			ready = append(ready, id)
		}
	}
	if len(ready) == 0 {
		return
	}

	pick := ready[s.rng.Intn(len(ready))]
	if _, err := s.ctrl.Request(e, pick, []world.EntityID{target.ID}); err != nil {
		if !errors.Is(err, action.ErrOnCooldown) {
			s.log.Warn("ai action rejected",
				zap.Uint64("entity", uint64(e.ID)),
				zap.Int32("action", pick),
				zap.Error(err),
			)
		}
	}
}

// selectTarget returns the closest valid hated entity; the cached aggro
// target wins distance ties, then the lower entity ID.
func (s *AISystem) selectTarget(e *world.Entity) *world.Entity {
	var best *world.Entity
	var bestDist int32
	for id := range e.Hate {
		t := s.world.Get(id)
		if !s.world.ValidTarget(e, t) {
			continue
		}
		d := world.Chebyshev(e, t)
		switch {
		case best == nil, d < bestDist:
			best, bestDist = t, d
		case d == bestDist:
			if id == e.AggroTarget || (best.ID != e.AggroTarget && id < best.ID) {
				best = t
			}
		}
	}
	return best
}

// idle scans for hostiles inside the archetype's detection radius and seeds
// hate so the attack branch takes over next tick.
func (s *AISystem) idle(e *world.Entity) {
	arch := s.arch.Get(e.ArchetypeID)
	if arch == nil || arch.DetectRadius <= 0 {
		return
	}
	s.world.All(func(other *world.Entity) {
		if !s.world.ValidTarget(e, other) {
			return
		}
		if world.Chebyshev(e, other) <= arch.DetectRadius {
			AddHate(e, other.ID, 1)
		}
	})
}
