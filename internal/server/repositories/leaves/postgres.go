package leaves

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
)

// PostgresRepository implements leave storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const leaveColumns = `id, user_id, leave_type, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
		reason, is_full_day, status, attachment_key, decided_by, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLeave(row scanner) (*models.Leave, error) {
	var (
		l         models.Leave
		status    string
		decidedBy sql.NullString
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.LeaveType, &l.StartDate, &l.EndDate,
		&l.Reason, &l.IsFullDay, &status, &l.AttachmentKey, &decidedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = models.LeaveStatus(status)
	l.DecidedBy = decidedBy.String
	return &l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.Leave) error {
	query := `
		INSERT INTO leaves (user_id, leave_type, start_date, end_date, reason, is_full_day, attachment_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at, updated_at
	`
	var status string
	err := r.db.QueryRowContext(ctx, query,
		l.UserID, l.LeaveType, l.StartDate, l.EndDate, l.Reason, l.IsFullDay, l.AttachmentKey).
		Scan(&l.ID, &status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	l.Status = models.LeaveStatus(status)
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Leave, error) {
	query := `SELECT ` + leaveColumns + `
		FROM leaves
		WHERE id = $1
	`
	l, err := scanLeave(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Leave, error) {
	query := `SELECT ` + leaveColumns + `
		FROM leaves
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Leave, error) {
	query := `SELECT ` + leaveColumns + `
		FROM leaves
		ORDER BY created_at DESC
	`
	return r.list(ctx, query)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Leave, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select leaves: %w", err)
	}
	defer rows.Close()

	result := []*models.Leave{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Decide(ctx context.Context, id string, status models.LeaveStatus, decidedBy string) (*models.Leave, error) {
	query := `
		UPDATE leaves SET status = $2, decided_by = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + leaveColumns

	l, err := scanLeave(r.db.QueryRowContext(ctx, query, id, string(status), decidedBy))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}
