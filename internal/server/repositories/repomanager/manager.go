package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/repositories/attendance"
	"github.com/dmitrijs2005/ems/internal/server/repositories/leaves"
	"github.com/dmitrijs2005/ems/internal/server/repositories/otps"
	"github.com/dmitrijs2005/ems/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/ems/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	OTPs(db dbx.DBTX) otps.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Attendance(db dbx.DBTX) attendance.Repository
	Leaves(db dbx.DBTX) leaves.Repository
}
