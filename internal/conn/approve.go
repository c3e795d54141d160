package conn

import (
	"context"
	"time"

	"github.com/bossraid/server/internal/config"
	"github.com/bossraid/server/internal/persist"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RejectReason says why a hello was refused. Sent to the client before the
// host closes the transport, so the player sees a cause instead of a
// generic timeout.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectNotHosting
	RejectPayloadTooLarge
	RejectDuplicateLogin
	RejectServerFull
	RejectBuildMismatch
	RejectBadCredentials
)

func (r RejectReason) Message() string {
	switch r {
	case RejectNone:
		return ""
	case RejectNotHosting:
		return "host is not accepting connections"
	case RejectPayloadTooLarge:
		return "connection payload too large"
	case RejectDuplicateLogin:
		return "account already connected"
	case RejectServerFull:
		return "server is full"
	case RejectBuildMismatch:
		return "client build does not match host"
	case RejectBadCredentials:
		return "wrong account name or password"
	}
	return "connection refused"
}

// Accounts is the persistence surface the approval pipeline needs.
// *persist.PlayerRepo implements it.
type Accounts interface {
	Load(ctx context.Context, normalizedName string) (*persist.PlayerRow, error)
	Create(ctx context.Context, name, normalizedName, rawPassword, buildTag string) (*persist.PlayerRow, error)
	ValidatePassword(hash, rawPassword string) bool
}

// Hello is the parsed connection request.
type Hello struct {
	TransportID  uint64
	PayloadBytes int
	Name         string
	Password     string
	BuildTag     string
	PlayerID     string // persistent ID for reconnection, empty on first join
}

// Verdict is the approval outcome. On success Session is set; on rejection
// Reason says why.
type Verdict struct {
	Session   *ConnectionSession
	Reconnect bool
	Reason    RejectReason
}

// Approver runs the host-side connection approval pipeline. Checks run in a
// fixed order so a client failing several gets the same reason every time:
// payload size, then identity, then capacity, then build, then credentials.
type Approver struct {
	registry *Registry
	accounts Accounts
	cfg      config.ApprovalConfig
	buildTag string
	log      *zap.Logger
}

func NewApprover(registry *Registry, accounts Accounts, cfg config.ApprovalConfig, buildTag string, log *zap.Logger) *Approver {
	return &Approver{
		registry: registry,
		accounts: accounts,
		cfg:      cfg,
		buildTag: buildTag,
		log:      log,
	}
}

// Approve evaluates one hello. It never disconnects the transport itself;
// the caller sends the welcome or reject packet and acts on the verdict.
func (a *Approver) Approve(ctx context.Context, hello Hello) (Verdict, error) {
	if a.cfg.MaxPayloadBytes > 0 && hello.PayloadBytes > a.cfg.MaxPayloadBytes {
		return Verdict{Reason: RejectPayloadTooLarge}, nil
	}

	normalized := NormalizeName(hello.Name)
	if normalized == "" {
		return Verdict{Reason: RejectBadCredentials}, nil
	}

	// A known player reattaching to a disconnected session skips the
	// duplicate and capacity checks: the slot is still theirs.
	if hello.PlayerID != "" {
		if pid, err := uuid.Parse(hello.PlayerID); err == nil {
			if cs := a.registry.Reattach(pid, hello.TransportID); cs != nil {
				return Verdict{Session: cs, Reconnect: true}, nil
			}
		}
	}

	if existing := a.registry.ByName(normalized); existing != nil && existing.Connected {
		return Verdict{Reason: RejectDuplicateLogin}, nil
	}

	if a.registry.Count() >= a.cfg.MaxPlayers {
		return Verdict{Reason: RejectServerFull}, nil
	}

	if a.buildTag != "" && hello.BuildTag != a.buildTag {
		return Verdict{Reason: RejectBuildMismatch}, nil
	}

	row, err := a.accounts.Load(ctx, normalized)
	if err != nil {
		return Verdict{}, err
	}
	if row == nil {
		row, err = a.accounts.Create(ctx, hello.Name, normalized, hello.Password, hello.BuildTag)
		if err != nil {
			return Verdict{}, err
		}
		a.log.Info("account created", zap.String("name", hello.Name))
	} else if !a.accounts.ValidatePassword(row.PasswordHash, hello.Password) {
		return Verdict{Reason: RejectBadCredentials}, nil
	}

	cs := &ConnectionSession{
		PlayerID:       row.ID,
		Name:           row.Name,
		NormalizedName: row.NormalizedName,
		TransportID:    hello.TransportID,
	}
	a.registry.Begin(cs)
	return Verdict{Session: cs}, nil
}

// Disconnect records a transport drop: the session survives with a
// disconnect timestamp so the player can reattach later.
func (a *Approver) Disconnect(transportID uint64, now time.Time) *ConnectionSession {
	return a.registry.MarkDisconnected(transportID, now)
}
