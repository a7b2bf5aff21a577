// Package otps declares the repository contract for one-time codes and its
// PostgreSQL implementation.
package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ems/internal/server/models"
)

type Repository interface {
	// Create stores a new unconsumed code and fills in its ID.
	Create(ctx context.Context, otp *models.OTP) error

	// LockPair serialises issuance for (email, purpose) until the enclosing
	// transaction ends.
	LockPair(ctx context.Context, email string, purpose models.OTPPurpose) error

	// InvalidateActive marks every unconsumed code for (email, purpose)
	// consumed and reports how many were affected.
	InvalidateActive(ctx context.Context, email string, purpose models.OTPPurpose) (int64, error)

	// LatestActiveForUpdate returns the newest unconsumed code for
	// (email, purpose), locking it for the enclosing transaction.
	// common.ErrorNotFound when there is none.
	LatestActiveForUpdate(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error)

	// Consume flips the code to consumed if it still is unconsumed and
	// reports whether this call did it.
	Consume(ctx context.Context, id string) (bool, error)

	// DeleteExpired removes codes that expired before now or were consumed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
