// Package attendance provides storage for punch-in/punch-out records.
package attendance

import (
	"context"

	"github.com/dmitrijs2005/ems/internal/server/models"
)

// Filter narrows a listing to an inclusive YYYY-MM-DD date range. Empty
// bounds are open.
type Filter struct {
	From string
	To   string
}

type Repository interface {
	// Create inserts record and fills in its ID and CreatedAt.
	Create(ctx context.Context, record *models.Attendance) error

	// Latest returns the user's most recent record or common.ErrorNotFound.
	Latest(ctx context.Context, userID string) (*models.Attendance, error)

	// List returns the user's records in chronological order.
	List(ctx context.Context, userID string, filter Filter) ([]*models.Attendance, error)
}
