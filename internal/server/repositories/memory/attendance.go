package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/attendance"
	"github.com/google/uuid"
)

type attendanceRepo struct {
	st *state
}

func (r *attendanceRepo) Create(_ context.Context, a *models.Attendance) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()

	stored := *a
	r.st.attendance = append(r.st.attendance, &stored)
	return nil
}

func (r *attendanceRepo) Latest(_ context.Context, userID string) (*models.Attendance, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for i := len(r.st.attendance) - 1; i >= 0; i-- {
		if a := r.st.attendance[i]; a.UserID == userID {
			out := *a
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *attendanceRepo) List(_ context.Context, userID string, filter attendance.Filter) ([]*models.Attendance, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	result := []*models.Attendance{}
	for _, a := range r.st.attendance {
		if a.UserID != userID {
			continue
		}
		// YYYY-MM-DD compares chronologically as a string
		if filter.From != "" && a.Date < filter.From {
			continue
		}
		if filter.To != "" && a.Date > filter.To {
			continue
		}
		out := *a
		result = append(result, &out)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}
