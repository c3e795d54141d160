package system

import (
	"context"
	"time"

	"github.com/bossraid/server/internal/conn"
	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/persist"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PersistSystem batch-saves session records on an interval. The tick never
// blocks on the database: each flush snapshots the registry and writes from
// a goroutine.
type PersistSystem struct {
	registry *conn.Registry
	repo     *persist.PlayerRepo
	interval time.Duration
	acc      time.Duration
	log      *zap.Logger
}

func NewPersistSystem(registry *conn.Registry, repo *persist.PlayerRepo, interval time.Duration, log *zap.Logger) *PersistSystem {
	return &PersistSystem{registry: registry, repo: repo, interval: interval, log: log}
}

func (s *PersistSystem) Phase() sys.Phase { return sys.PhasePersist }

func (s *PersistSystem) Update(dt time.Duration) {
	if s.repo == nil || s.interval <= 0 {
		return
	}
	s.acc += dt
	if s.acc < s.interval {
		return
	}
	s.acc = 0
	s.Flush()
}

type sessionSnapshot struct {
	playerID       uuid.UUID
	transportID    uint64
	connected      bool
	disconnectedAt time.Time
}

// Flush saves every session record now. Also called once at shutdown.
func (s *PersistSystem) Flush() {
	if s.repo == nil {
		return
	}
	var snaps []sessionSnapshot
	s.registry.Each(func(cs *conn.ConnectionSession) {
		snaps = append(snaps, sessionSnapshot{
			playerID:       cs.PlayerID,
			transportID:    cs.TransportID,
			connected:      cs.Connected,
			disconnectedAt: cs.DisconnectedAt,
		})
	})
	if len(snaps) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, sn := range snaps {
			var dcAt *time.Time
			if !sn.connected && !sn.disconnectedAt.IsZero() {
				t := sn.disconnectedAt
				dcAt = &t
			}
			if err := s.repo.SaveSession(ctx, sn.playerID, sn.transportID, dcAt); err != nil {
				s.log.Error("session save failed",
					zap.String("player", sn.playerID.String()),
					zap.Error(err),
				)
				continue
			}
			if sn.connected {
				if err := s.repo.TouchLastSeen(ctx, sn.playerID); err != nil {
					s.log.Error("last-seen update failed",
						zap.String("player", sn.playerID.String()),
						zap.Error(err),
					)
				}
			}
		}
	}()
}
