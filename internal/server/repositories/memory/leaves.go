package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/google/uuid"
)

type leaveRepo struct {
	st *state
}

func (r *leaveRepo) Create(_ context.Context, l *models.Leave) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	now := time.Now()
	l.ID = uuid.NewString()
	l.Status = models.LeaveStatusPending
	l.CreatedAt = now
	l.UpdatedAt = now

	stored := *l
	r.st.leaves = append(r.st.leaves, &stored)
	return nil
}

func (r *leaveRepo) Get(_ context.Context, id string) (*models.Leave, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for _, l := range r.st.leaves {
		if l.ID == id {
			out := *l
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

// newest first, matching the SQL ordering
func (r *leaveRepo) collect(keep func(*models.Leave) bool) []*models.Leave {
	result := []*models.Leave{}
	for i := len(r.st.leaves) - 1; i >= 0; i-- {
		if l := r.st.leaves[i]; keep(l) {
			out := *l
			result = append(result, &out)
		}
	}
	return result
}

func (r *leaveRepo) ListByUser(_ context.Context, userID string) ([]*models.Leave, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	return r.collect(func(l *models.Leave) bool { return l.UserID == userID }), nil
}

func (r *leaveRepo) ListAll(_ context.Context) ([]*models.Leave, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	return r.collect(func(*models.Leave) bool { return true }), nil
}

func (r *leaveRepo) Decide(_ context.Context, id string, status models.LeaveStatus, decidedBy string) (*models.Leave, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, l := range r.st.leaves {
		if l.ID == id && l.Status == models.LeaveStatusPending {
			l.Status = status
			l.DecidedBy = decidedBy
			l.UpdatedAt = time.Now()
			out := *l
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}
