package conn

import (
	"time"

	"github.com/bossraid/server/internal/world"
	"github.com/google/uuid"
)

// ConnectionSession is the host-side record of one player's connection,
// keyed by the persistent player ID so it survives transport drops. The
// entity stays alive while its owner is disconnected; a reconnecting client
// reattaches to the same record and the same entity.
type ConnectionSession struct {
	PlayerID       uuid.UUID
	Name           string
	NormalizedName string
	EntityID       world.EntityID
	TransportID    uint64
	Connected      bool
	DisconnectedAt time.Time
}

// Registry tracks every live connection session on the host.
// Game-loop goroutine only.
type Registry struct {
	byPlayer    map[uuid.UUID]*ConnectionSession
	byTransport map[uint64]*ConnectionSession
}

func NewRegistry() *Registry {
	return &Registry{
		byPlayer:    make(map[uuid.UUID]*ConnectionSession, 8),
		byTransport: make(map[uint64]*ConnectionSession, 8),
	}
}

// Begin registers a fresh connection session.
func (r *Registry) Begin(cs *ConnectionSession) {
	cs.Connected = true
	r.byPlayer[cs.PlayerID] = cs
	r.byTransport[cs.TransportID] = cs
}

func (r *Registry) ByPlayer(id uuid.UUID) *ConnectionSession { return r.byPlayer[id] }
func (r *Registry) ByTransport(id uint64) *ConnectionSession { return r.byTransport[id] }

// ByName finds the session whose owner has the given normalized name.
func (r *Registry) ByName(normalized string) *ConnectionSession {
	for _, cs := range r.byPlayer {
		if cs.NormalizedName == normalized {
			return cs
		}
	}
	return nil
}

// MarkDisconnected detaches the transport but keeps the session so the
// player can reattach. Returns the session, or nil if the transport was
// unknown.
func (r *Registry) MarkDisconnected(transportID uint64, now time.Time) *ConnectionSession {
	cs := r.byTransport[transportID]
	if cs == nil {
		return nil
	}
	delete(r.byTransport, transportID)
	cs.TransportID = 0
	cs.Connected = false
	cs.DisconnectedAt = now
	return cs
}

// Reattach binds a disconnected session to a new transport. Returns nil if
// the player has no session or is still attached elsewhere.
func (r *Registry) Reattach(playerID uuid.UUID, transportID uint64) *ConnectionSession {
	cs := r.byPlayer[playerID]
	if cs == nil || cs.Connected {
		return nil
	}
	cs.TransportID = transportID
	cs.Connected = true
	r.byTransport[transportID] = cs
	return cs
}

// End removes the session entirely. The caller owns entity teardown.
func (r *Registry) End(playerID uuid.UUID) *ConnectionSession {
	cs := r.byPlayer[playerID]
	if cs == nil {
		return nil
	}
	delete(r.byPlayer, playerID)
	if cs.Connected {
		delete(r.byTransport, cs.TransportID)
	}
	return cs
}

// ConnectedCount returns how many sessions currently have a live transport.
func (r *Registry) ConnectedCount() int { return len(r.byTransport) }

// Count returns all sessions, attached or not.
func (r *Registry) Count() int { return len(r.byPlayer) }

// Each visits every session.
func (r *Registry) Each(fn func(*ConnectionSession)) {
	for _, cs := range r.byPlayer {
		fn(cs)
	}
}
