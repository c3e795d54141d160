package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain session in-queues into commands
	PhasePreUpdate               // 1: connection machine timers, scheduled callbacks
	PhaseUpdate                  // 2: action advancement, AI decisions
	PhasePostUpdate              // 3: regen, buff expiry
	PhaseOutput                  // 4: replication flush + send
	PhasePersist                 // 5: periodic batch save
	PhaseCleanup                 // 6: destroy queued entities
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
