package attendance

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "user_id", "action_type", "date", "time", "location", "latitude", "longitude", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+attendance\s*\(user_id,\s*action_type,\s*date,\s*time,\s*location,\s*latitude,\s*longitude\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*RETURNING\s+id,\s*created_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u1", "punch_in", "2024-05-01", "09:00:00", "Office", 12.5, 77.25).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("a1", now))

	rec := &models.Attendance{
		UserID: "u1", ActionType: models.ActionPunchIn, Date: "2024-05-01", Time: "09:00:00",
		Location: "Office", Latitude: 12.5, Longitude: 77.25,
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, "a1", rec.ID)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+attendance\b`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Attendance{UserID: "u1"})
	assert.ErrorContains(t, err, "db error: db down")
}

func TestLatest(t *testing.T) {
	q := `(?s)^SELECT\s+id,.*FROM\s+attendance\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1\s*$`

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("a2", "u1", "punch_out", "2024-05-01", "18:00:00", "Office", 1.0, 2.0, time.Now()))

		got, err := repo.Latest(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.ActionPunchOut, got.ActionType)
		assert.Equal(t, "18:00:00", got.Time)
	})

	t.Run("empty", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Latest(context.Background(), "u1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestList_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		query  string
		args   []any
	}{
		{
			name:  "no filter",
			query: `(?s)WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+date,\s*time,\s*created_at$`,
			args:  []any{"u1"},
		},
		{
			name:   "single day",
			filter: Filter{From: "2024-05-01", To: "2024-05-01"},
			query:  `(?s)WHERE\s+user_id\s*=\s*\$1\s+AND\s+date\s*>=\s*\$2\s+AND\s+date\s*<=\s*\$3\s+ORDER\s+BY`,
			args:   []any{"u1", "2024-05-01", "2024-05-01"},
		},
		{
			name:   "open end",
			filter: Filter{From: "2024-05-01"},
			query:  `(?s)WHERE\s+user_id\s*=\s*\$1\s+AND\s+date\s*>=\s*\$2\s+ORDER\s+BY`,
			args:   []any{"u1", "2024-05-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			args := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				args = append(args, a)
			}
			mock.ExpectQuery(tt.query).WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(columns).
					AddRow("a1", "u1", "punch_in", "2024-05-01", "09:00:00", "Office", 1.0, 2.0, time.Now()).
					AddRow("a2", "u1", "punch_out", "2024-05-01", "18:00:00", "Office", 1.0, 2.0, time.Now()))

			got, err := repo.List(context.Background(), "u1", tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, 2)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestList_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)FROM\s+attendance`).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background(), "u1", Filter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
