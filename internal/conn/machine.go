package conn

import (
	"github.com/bossraid/server/internal/config"
	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/core/sched"
	"go.uber.org/zap"
)

// StateKind identifies one connection lifecycle state.
type StateKind int

const (
	Offline StateKind = iota
	StartingHost
	Hosting
	ClientConnecting
	ClientConnected
	ClientReconnecting
)

func (k StateKind) String() string {
	switch k {
	case Offline:
		return "offline"
	case StartingHost:
		return "starting-host"
	case Hosting:
		return "hosting"
	case ClientConnecting:
		return "client-connecting"
	case ClientConnected:
		return "client-connected"
	case ClientReconnecting:
		return "client-reconnecting"
	}
	return "unknown"
}

// State handles lifecycle inputs while it is current. Inputs a state does
// not care about are no-ops via BaseState.
type State interface {
	Kind() StateKind
	Enter()
	Exit()

	StartHost()
	StartClient()
	HostSetupDone(err error)
	ApprovalResult(ok bool)
	TransportDisconnected(userInitiated bool)
	Shutdown()
}

// BaseState provides no-op input handlers; concrete states embed it and
// override only the inputs valid for them.
type BaseState struct{ m *Machine }

func (BaseState) Enter()                     {}
func (BaseState) Exit()                      {}
func (BaseState) StartHost()                 {}
func (BaseState) StartClient()               {}
func (BaseState) HostSetupDone(error)        {}
func (BaseState) ApprovalResult(bool)        {}
func (BaseState) TransportDisconnected(bool) {}
func (BaseState) Shutdown()                  {}

// Dialer attempts one (re)connection to the remote host. Synchronous; the
// reconnecting state calls it from scheduler callbacks, never from Enter.
type Dialer interface {
	Attempt() bool
	SessionAlive() bool
}

// Machine is the connection lifecycle state machine. Exactly one state is
// current at any time; transitions run exit before enter, and a transition
// requested while one is in progress is queued and applied afterwards.
// Game-loop goroutine only.
type Machine struct {
	bus   *event.Bus
	sched *sched.Scheduler
	cfg   config.ReconnectConfig
	dial  Dialer
	log   *zap.Logger

	states        map[StateKind]State
	current       State
	transitioning bool
	queued        []StateKind
}

func NewMachine(bus *event.Bus, sc *sched.Scheduler, cfg config.ReconnectConfig, dial Dialer, log *zap.Logger) *Machine {
	m := &Machine{
		bus:   bus,
		sched: sc,
		cfg:   cfg,
		dial:  dial,
		log:   log,
	}
	m.states = map[StateKind]State{
		Offline:            &offlineState{BaseState{m}},
		StartingHost:       &startingHostState{BaseState{m}},
		Hosting:            &hostingState{BaseState{m}},
		ClientConnecting:   &clientConnectingState{BaseState{m}},
		ClientConnected:    &clientConnectedState{BaseState{m}},
		ClientReconnecting: &clientReconnectingState{BaseState: BaseState{m}},
	}
	m.current = m.states[Offline]
	return m
}

// Current returns the current state kind.
func (m *Machine) Current() StateKind { return m.current.Kind() }

// Input forwarding. Each call lands on the current state only.

func (m *Machine) StartHost()                      { m.current.StartHost() }
func (m *Machine) StartClient()                    { m.current.StartClient() }
func (m *Machine) HostSetupDone(err error)         { m.current.HostSetupDone(err) }
func (m *Machine) ApprovalResult(ok bool)          { m.current.ApprovalResult(ok) }
func (m *Machine) TransportDisconnected(user bool) { m.current.TransportDisconnected(user) }
func (m *Machine) Shutdown()                       { m.current.Shutdown() }

// transition switches to the given state. Transitioning to the current
// state is a no-op: Exit and Enter do not re-run.
func (m *Machine) transition(to StateKind) {
	if m.transitioning {
		m.queued = append(m.queued, to)
		return
	}
	if m.current.Kind() == to {
		return
	}

	m.transitioning = true
	old := m.current.Kind()
	m.current.Exit()
	m.current = m.states[to]
	m.current.Enter()
	m.transitioning = false

	m.log.Info("connection state",
		zap.Stringer("from", old),
		zap.Stringer("to", to),
	)
	if err := event.Publish(m.bus, ConnectionStateChanged{Old: old, New: to}); err != nil {
		m.log.Error("state change event", zap.Error(err))
	}

	for len(m.queued) > 0 {
		next := m.queued[0]
		m.queued = m.queued[1:]
		m.transition(next)
	}
}
