package conn

import "github.com/google/uuid"

// ConnectionStateChanged fires on every lifecycle state transition.
type ConnectionStateChanged struct {
	Old StateKind
	New StateKind
}

// ConnectionApproved fires when a hello passes the approval pipeline.
type ConnectionApproved struct {
	TransportID uint64
	PlayerID    uuid.UUID
	Reconnect   bool
}

// ConnectionRejected fires when a hello is refused. The reason is also sent
// to the client in the reject packet.
type ConnectionRejected struct {
	TransportID uint64
	Reason      RejectReason
}

// ReconnectionExhausted fires when the reconnecting state gives up, either
// because every attempt failed or the remote session no longer exists.
type ReconnectionExhausted struct {
	Attempts int
}
