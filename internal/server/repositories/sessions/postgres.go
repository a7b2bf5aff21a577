package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token_hash, refresh_token_hash, device_type, issued_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.AccessTokenHash, s.RefreshTokenHash, s.DeviceType, s.IssuedAt, s.IsActive); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, access_token_hash, refresh_token_hash, device_type, issued_at, is_active, ended_at
		FROM sessions
		WHERE id = $1
	`
	s := &models.Session{}
	var endedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.AccessTokenHash, &s.RefreshTokenHash, &s.DeviceType, &s.IssuedAt, &s.IsActive, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return s, nil
}

func (r *PostgresRepository) DeactivateForUser(ctx context.Context, userID string, endedAt time.Time) (int64, error) {
	query := `
		UPDATE sessions SET is_active = FALSE, ended_at = $2
		WHERE user_id = $1 AND is_active
	`
	res, err := r.db.ExecContext(ctx, query, userID, endedAt)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateAccessHash(ctx context.Context, id string, accessTokenHash string) error {
	query := `
		UPDATE sessions SET access_token_hash = $2
		WHERE id = $1 AND is_active
	`
	res, err := r.db.ExecContext(ctx, query, id, accessTokenHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
