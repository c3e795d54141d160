package conn

import (
	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/core/sched"
	"go.uber.org/zap"
)

// offlineState is the resting state: nothing listening, nothing connected.
type offlineState struct{ BaseState }

func (s *offlineState) Kind() StateKind { return Offline }
func (s *offlineState) StartHost()      { s.m.transition(StartingHost) }
func (s *offlineState) StartClient()    { s.m.transition(ClientConnecting) }

// startingHostState waits for the transport listener to come up.
type startingHostState struct{ BaseState }

func (s *startingHostState) Kind() StateKind { return StartingHost }

func (s *startingHostState) HostSetupDone(err error) {
	if err != nil {
		s.m.transition(Offline)
		return
	}
	s.m.transition(Hosting)
}

func (s *startingHostState) Shutdown() { s.m.transition(Offline) }

// hostingState is the steady host state: the listener is up and clients may
// join through the approval pipeline.
type hostingState struct{ BaseState }

func (s *hostingState) Kind() StateKind            { return Hosting }
func (s *hostingState) TransportDisconnected(bool) { s.m.transition(Offline) }
func (s *hostingState) Shutdown()                  { s.m.transition(Offline) }

// clientConnectingState waits for the host's approval verdict.
type clientConnectingState struct{ BaseState }

func (s *clientConnectingState) Kind() StateKind { return ClientConnecting }

func (s *clientConnectingState) ApprovalResult(ok bool) {
	if ok {
		s.m.transition(ClientConnected)
		return
	}
	s.m.transition(Offline)
}

func (s *clientConnectingState) TransportDisconnected(bool) { s.m.transition(Offline) }
func (s *clientConnectingState) Shutdown()                  { s.m.transition(Offline) }

// clientConnectedState is the steady client state. An unexpected transport
// drop moves into reconnecting; a user-initiated one goes straight offline.
type clientConnectedState struct{ BaseState }

func (s *clientConnectedState) Kind() StateKind { return ClientConnected }

func (s *clientConnectedState) TransportDisconnected(userInitiated bool) {
	if userInitiated {
		s.m.transition(Offline)
		return
	}
	s.m.transition(ClientReconnecting)
}

func (s *clientConnectedState) Shutdown() { s.m.transition(Offline) }

// clientReconnectingState retries the connection on the simulation clock:
// the first attempt after FirstRetryDelay, later ones after RetryDelay, up
// to MaxAttempts. The tick never blocks on a retry. If the remote session
// no longer exists the retries are pointless and the state gives up at once.
type clientReconnectingState struct {
	BaseState
	attempts int
	pending  *sched.Entry
}

func (s *clientReconnectingState) Kind() StateKind { return ClientReconnecting }

func (s *clientReconnectingState) Enter() {
	s.attempts = 0
	s.pending = s.m.sched.After(s.m.cfg.FirstRetryDelay, s.try)
}

func (s *clientReconnectingState) Exit() {
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}

func (s *clientReconnectingState) try() {
	s.pending = nil

	if s.m.dial == nil || !s.m.dial.SessionAlive() {
		s.giveUp()
		return
	}

	s.attempts++
	if s.m.dial.Attempt() {
		s.m.transition(ClientConnected)
		return
	}
	if s.attempts >= s.m.cfg.MaxAttempts {
		s.giveUp()
		return
	}
	s.pending = s.m.sched.After(s.m.cfg.RetryDelay, s.try)
}

func (s *clientReconnectingState) giveUp() {
	if err := event.Publish(s.m.bus, ReconnectionExhausted{Attempts: s.attempts}); err != nil {
		s.m.log.Error("reconnect exhausted event", zap.Error(err))
	}
	s.m.transition(Offline)
}

func (s *clientReconnectingState) TransportDisconnected(userInitiated bool) {
	if userInitiated {
		s.m.transition(Offline)
	}
}

func (s *clientReconnectingState) Shutdown() { s.m.transition(Offline) }
