package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLStoreWithMock(t *testing.T) (*SQLSessionStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLSessionStore(dbx.NewSQLTransactor(db, nil), repomanager.NewPostgresRepositoryManager()), mock
}

func testSession() *models.Session {
	return &models.Session{
		ID: "s1", UserID: "u1", AccessTokenHash: "ah", RefreshTokenHash: "rh",
		DeviceType: "web", IssuedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), IsActive: true,
	}
}

func TestSQLSessionStore_Activate(t *testing.T) {
	store, mock := newSQLStoreWithMock(t)
	s := testSession()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^SELECT\s+id\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectExec(`(?s)^UPDATE\s+sessions\s+SET\s+is_active\s*=\s*FALSE.*WHERE.*user_id\s*=\s*\$1.*is_active`).
		WithArgs("u1", s.IssuedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+sessions\b`).
		WithArgs("s1", "u1", "ah", "rh", "web", s.IssuedAt, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Activate(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSessionStore_Activate_RollsBack(t *testing.T) {
	store, mock := newSQLStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^SELECT\s+id\s+FROM\s+users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectExec(`(?s)^UPDATE\s+sessions`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+sessions\b`).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := store.Activate(context.Background(), testSession())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSessionStore_Activate_UnknownUser(t *testing.T) {
	store, mock := newSQLStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^SELECT\s+id\s+FROM\s+users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.Activate(context.Background(), testSession())
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSessionStore_DeactivateUser(t *testing.T) {
	store, mock := newSQLStoreWithMock(t)
	at := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)^UPDATE\s+sessions\s+SET\s+is_active\s*=\s*FALSE`).
		WithArgs("u1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.DeactivateUser(context.Background(), "u1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
