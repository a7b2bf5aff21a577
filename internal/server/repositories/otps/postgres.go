package otps

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

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, otp *models.OTP) error {
	query := `
		INSERT INTO otps (email, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, otp.Email, otp.Code, string(otp.Purpose), otp.ExpiresAt).
		Scan(&otp.ID, &otp.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LockPair(ctx context.Context, email string, purpose models.OTPPurpose) error {
	query := `
		SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))
	`
	if _, err := r.db.ExecContext(ctx, query, email, string(purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InvalidateActive(ctx context.Context, email string, purpose models.OTPPurpose) (int64, error) {
	query := `
		UPDATE otps SET consumed = TRUE
		WHERE email = $1 AND purpose = $2 AND NOT consumed
	`
	res, err := r.db.ExecContext(ctx, query, email, string(purpose))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) LatestActiveForUpdate(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	query := `
		SELECT id, code, expires_at, created_at
		FROM otps
		WHERE email = $1 AND purpose = $2 AND NOT consumed
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	otp := &models.OTP{Email: email, Purpose: purpose}
	err := r.db.QueryRowContext(ctx, query, email, string(purpose)).
		Scan(&otp.ID, &otp.Code, &otp.ExpiresAt, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE otps SET consumed = TRUE
		WHERE id = $1 AND consumed = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM otps
		WHERE consumed OR expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
