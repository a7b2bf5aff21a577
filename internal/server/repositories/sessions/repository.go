// Package sessions provides storage for login sessions: a SQL repository
// used inside units of work, and a Redis-backed session store.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ems/internal/server/models"
)

// Repository defines row-level operations on the sessions table. The
// single-active-session rule is enforced by callers running
// DeactivateForUser and Create in one transaction.
type Repository interface {
	// Create inserts session as given; the caller assigns the ID.
	Create(ctx context.Context, session *models.Session) error

	// Get returns a session by ID or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Session, error)

	// DeactivateForUser ends every active session of userID at endedAt.
	DeactivateForUser(ctx context.Context, userID string, endedAt time.Time) (int64, error)

	// UpdateAccessHash replaces the access-token fingerprint of an active
	// session. common.ErrorNotFound if the session is gone or inactive.
	UpdateAccessHash(ctx context.Context, id string, accessTokenHash string) error
}
