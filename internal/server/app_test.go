package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/ems/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Env = "prod"
	c.StorageBackend = config.StorageBackendMemory
	c.HTTPAddr = "127.0.0.1:0"
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)

	c := memoryConfig()
	c.SessionBackend = config.SessionBackendRedis
	c.RedisAddr = mr.Addr()

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, app.closers, 1)
	app.close()
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := memoryConfig()
	c.SessionBackend = config.SessionBackendRedis
	c.RedisAddr = addr

	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestOpenStorage_Postgres(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()
	openDB = func(string) (*sql.DB, error) { return db, nil }

	c := memoryConfig()
	c.StorageBackend = config.StorageBackendPostgres

	_, err = OpenStorage(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db ping error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenStorage_Unknown(t *testing.T) {
	c := memoryConfig()
	c.StorageBackend = "cassandra"

	_, err := OpenStorage(context.Background(), c)
	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
