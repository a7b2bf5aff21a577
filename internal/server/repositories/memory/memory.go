// Package memory implements every repository contract in process memory.
// It backs the "memory" storage mode and the service tests.
//
// Units of work run through Transactor, which serialises them with a
// single mutex; writes made before a failing step are not rolled back.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/attendance"
	"github.com/dmitrijs2005/ems/internal/server/repositories/leaves"
	"github.com/dmitrijs2005/ems/internal/server/repositories/otps"
	"github.com/dmitrijs2005/ems/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/ems/internal/server/repositories/users"
)

type state struct {
	mu         sync.RWMutex
	users      map[string]*models.User // by id
	otps       []*models.OTP
	sessions   map[string]*models.Session
	attendance []*models.Attendance
	leaves     []*models.Leave
}

// RepositoryManager vends repositories sharing one in-memory state. The
// DBTX arguments are ignored.
type RepositoryManager struct {
	st *state
}

func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{st: &state{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
	}}
}

// RunMigrations is a no-op; there is no schema.
func (m *RepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *RepositoryManager) Users(dbx.DBTX) users.Repository { return &userRepo{st: m.st} }

func (m *RepositoryManager) OTPs(dbx.DBTX) otps.Repository { return &otpRepo{st: m.st} }

func (m *RepositoryManager) Sessions(dbx.DBTX) sessions.Repository { return &sessionRepo{st: m.st} }

func (m *RepositoryManager) Attendance(dbx.DBTX) attendance.Repository {
	return &attendanceRepo{st: m.st}
}

func (m *RepositoryManager) Leaves(dbx.DBTX) leaves.Repository { return &leaveRepo{st: m.st} }

// Transactor runs each unit of work under one process-wide lock, which is
// what the row locks of the SQL backend provide per user.
type Transactor struct {
	mu sync.Mutex
}

func NewTransactor() *Transactor {
	return &Transactor{}
}

func (t *Transactor) WithinTx(ctx context.Context, fn dbx.TxFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, nil)
}

func (t *Transactor) Conn() dbx.DBTX { return nil }
