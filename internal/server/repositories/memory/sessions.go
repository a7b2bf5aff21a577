package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
)

type sessionRepo struct {
	st *state
}

func (r *sessionRepo) Create(_ context.Context, s *models.Session) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored := *s
	r.st.sessions[s.ID] = &stored
	return nil
}

func (r *sessionRepo) Get(_ context.Context, id string) (*models.Session, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	s, ok := r.st.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *s
	return &out, nil
}

func (r *sessionRepo) DeactivateForUser(_ context.Context, userID string, endedAt time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var n int64
	for _, s := range r.st.sessions {
		if s.UserID == userID && s.IsActive {
			ended := endedAt
			s.IsActive = false
			s.EndedAt = &ended
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) UpdateAccessHash(_ context.Context, id string, accessTokenHash string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	s, ok := r.st.sessions[id]
	if !ok || !s.IsActive {
		return common.ErrorNotFound
	}
	s.AccessTokenHash = accessTokenHash
	return nil
}
