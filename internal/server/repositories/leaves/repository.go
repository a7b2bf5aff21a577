// Package leaves provides storage for leave requests.
package leaves

import (
	"context"

	"github.com/dmitrijs2005/ems/internal/server/models"
)

type Repository interface {
	// Create inserts a pending request and fills in ID, Status and timestamps.
	Create(ctx context.Context, leave *models.Leave) error

	Get(ctx context.Context, id string) (*models.Leave, error)

	// ListByUser returns the user's requests, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.Leave, error)

	// ListAll returns every request, newest first.
	ListAll(ctx context.Context) ([]*models.Leave, error)

	// Decide moves a pending request to status and records who decided.
	// common.ErrorNotFound when no pending request with that id exists.
	Decide(ctx context.Context, id string, status models.LeaveStatus, decidedBy string) (*models.Leave, error)
}
