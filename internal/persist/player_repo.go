package persist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// PlayerRow is one persistent player identity. The ID is stable across
// reconnections and host restarts.
type PlayerRow struct {
	ID             uuid.UUID
	Name           string
	NormalizedName string
	PasswordHash   string
	BuildTag       string
	CreatedAt      time.Time
	LastSeen       *time.Time
}

type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Load fetches a player by normalized name. Returns (nil, nil) when absent.
func (r *PlayerRepo) Load(ctx context.Context, normalizedName string) (*PlayerRow, error) {
	row := &PlayerRow{}
	var id string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, normalized_name, password_hash, build_tag, created_at, last_seen
		 FROM players WHERE normalized_name = $1`, normalizedName,
	).Scan(&id, &row.Name, &row.NormalizedName, &row.PasswordHash, &row.BuildTag,
		&row.CreatedAt, &row.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Create registers a new player with a bcrypt-hashed password.
func (r *PlayerRepo) Create(ctx context.Context, name, normalizedName, rawPassword, buildTag string) (*PlayerRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	row := &PlayerRow{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: normalizedName,
		PasswordHash:   string(hash),
		BuildTag:       buildTag,
		CreatedAt:      now,
		LastSeen:       &now,
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO players (id, name, normalized_name, password_hash, build_tag, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		row.ID.String(), row.Name, row.NormalizedName, row.PasswordHash, row.BuildTag, row.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ValidatePassword checks a raw password against the stored bcrypt hash.
func (r *PlayerRepo) ValidatePassword(hash string, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

// TouchLastSeen updates the player's last activity timestamp.
func (r *PlayerRepo) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET last_seen = now() WHERE id = $1`, id.String())
	return err
}

// SaveSession records the player's live transport session so reconnection
// approval can verify the remote session still exists after a host restart.
func (r *PlayerRepo) SaveSession(ctx context.Context, playerID uuid.UUID, transportID uint64, disconnectedAt *time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO player_sessions (player_id, transport_id, disconnected_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (player_id) DO UPDATE
		 SET transport_id = EXCLUDED.transport_id,
		     disconnected_at = EXCLUDED.disconnected_at`,
		playerID.String(), int64(transportID), disconnectedAt)
	return err
}

// EndSession removes the player's session record.
func (r *PlayerRepo) EndSession(ctx context.Context, playerID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM player_sessions WHERE player_id = $1`, playerID.String())
	return err
}
