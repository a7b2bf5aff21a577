package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
)

// PostgresRepository implements attendance storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAttendance = `
		SELECT id, user_id, action_type, to_char(date, 'YYYY-MM-DD'), to_char(time, 'HH24:MI:SS'),
			location, latitude, longitude, created_at
		FROM attendance
		WHERE user_id = $1`

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attendance) error {
	query := `
		INSERT INTO attendance (user_id, action_type, date, time, location, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.UserID, string(a.ActionType), a.Date, a.Time, a.Location, a.Latitude, a.Longitude).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID string) (*models.Attendance, error) {
	query := selectAttendance + `
		ORDER BY created_at DESC
		LIMIT 1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, common.ErrorNotFound
	}
	return result[0], nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, filter Filter) ([]*models.Attendance, error) {
	var sb strings.Builder
	sb.WriteString(selectAttendance)
	args := []any{userID}

	if filter.From != "" {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND date >= $%d", len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND date <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY date, time, created_at")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select attendance: %w", err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]*models.Attendance, error) {
	result := []*models.Attendance{}
	for rows.Next() {
		var item models.Attendance
		var action string
		if err := rows.Scan(
			&item.ID, &item.UserID, &action, &item.Date, &item.Time,
			&item.Location, &item.Latitude, &item.Longitude, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.ActionType = models.AttendanceAction(action)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
