package action

import (
	"errors"
	"time"

	"github.com/bossraid/server/internal/data"
	"github.com/bossraid/server/internal/world"
)

// ErrOnCooldown is returned when an action is requested before its reuse
// time elapsed. Expected and recoverable; callers may retry later.
var ErrOnCooldown = errors.New("action: reuse time has not elapsed")

// ErrUnknownAction is returned for a definition ID absent from the table.
var ErrUnknownAction = errors.New("action: unknown definition")

// Instance is one in-flight execution of an ActionDefinition. Created on
// request, destroyed when the action completes, is cancelled, or is
// superseded.
type Instance struct {
	def     *data.ActionDefinition
	elapsed time.Duration

	// Target hints from the requester. Resolution happens twice: a
	// provisional pass at start (visual feedback only) and the real pass at
	// the execution-time boundary.
	hints       []world.EntityID
	provisional []world.EntityID

	started bool
	fired   bool // effect applied; guards against double application
	ended   bool
}

func (i *Instance) Definition() *data.ActionDefinition { return i.def }
func (i *Instance) Elapsed() time.Duration             { return i.elapsed }
func (i *Instance) Started() bool                      { return i.started }
func (i *Instance) Fired() bool                        { return i.fired }
func (i *Instance) Ended() bool                        { return i.ended }

// Provisional returns the start-time target resolution. Gameplay
// consequences come only from the execution-time resolution.
func (i *Instance) Provisional() []world.EntityID { return i.provisional }

// Buff is a strength modifier applied to an entity by a buff-kind action.
// Active buffs scale incoming damage through the scripting hook.
type Buff struct {
	ActionID  int32
	Strength  int32
	ExpiresAt time.Duration
}

// entityState is the per-entity runtime the controller tracks: the ordered
// instance queue (index 0 is the active instance once started), the
// cooldown table, and active buffs.
type entityState struct {
	queue     []*Instance
	cooldowns map[int32]time.Duration // def ID -> sim time of last successful start
	buffs     []Buff
}
