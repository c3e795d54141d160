package system

import (
	"time"

	"github.com/bossraid/server/internal/action"
	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/core/sched"
	"github.com/bossraid/server/internal/world"
)

// despawnDelay keeps a dead AI entity visible long enough for clients to
// play its death presentation before the host destroys it.
const despawnDelay = 3 * time.Second

// WatchDeaths subscribes the death side effects to the bus: any entity
// leaving the Alive state has its action queue dropped and its hate wiped,
// and every other entity forgets it as a hate target. Dead AI entities are
// scheduled for destruction.
func WatchDeaths(bus *event.Bus, ws *world.State, ctrl *action.Controller, sc *sched.Scheduler) *event.Subscription {
	return event.Subscribe(bus, func(ev event.LifeStateChanged) {
		if ev.New == world.LifeAlive {
			return
		}
		e := ws.Get(ev.Entity)
		if e == nil {
			return
		}

		ctrl.CancelAll(e)
		ClearHate(e)
		ws.All(func(other *world.Entity) {
			if other.Hate != nil {
				RemoveHate(other, e.ID)
			}
		})

		if ev.New == world.LifeDead && e.Kind == world.KindMonster {
			id := e.ID
			sc.After(despawnDelay, func() {
				ws.MarkForDestruction(id)
			})
		}
	})
}
