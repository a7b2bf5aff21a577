// Package users declares the server-side repository contract for user
// accounts and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/ems/internal/server/models"
)

// Repository stores user accounts. Emails are expected in normalised
// (trimmed, lower case) form; lookups are exact.
type Repository interface {
	// Create inserts user and fills in its ID and timestamps. A taken email
	// yields common.ErrDuplicateEmail.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// LockByID takes a row lock on the user for the rest of the enclosing
	// transaction.
	LockByID(ctx context.Context, id string) error

	// ReplaceUnverified overwrites name and password hash of an account that
	// has not been verified yet. A verified or missing account yields
	// common.ErrorNotFound.
	ReplaceUnverified(ctx context.Context, email, userName, passwordHash string) error

	MarkVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email string, passwordHash string) error
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
}
