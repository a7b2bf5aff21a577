package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/google/uuid"
)

type userRepo struct {
	st *state
}

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, u := range r.st.users {
		if u.Email == user.Email {
			return nil, common.ErrDuplicateEmail
		}
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.st.users[user.ID] = &stored
	return user, nil
}

func (r *userRepo) byEmail(email string) *models.User {
	for _, u := range r.st.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	u := r.byEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	u, ok := r.st.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepo) LockByID(_ context.Context, id string) error {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	if _, ok := r.st.users[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *userRepo) update(email string, fn func(u *models.User)) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	u := r.byEmail(email)
	if u == nil {
		return common.ErrorNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *userRepo) ReplaceUnverified(_ context.Context, email, userName, passwordHash string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	u := r.byEmail(email)
	if u == nil || u.IsVerified {
		return common.ErrorNotFound
	}
	u.UserName = userName
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (r *userRepo) MarkVerified(_ context.Context, email string) error {
	return r.update(email, func(u *models.User) { u.IsVerified = true })
}

func (r *userRepo) UpdatePassword(_ context.Context, email string, passwordHash string) error {
	return r.update(email, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (r *userRepo) SetAdmin(_ context.Context, email string, isAdmin bool) error {
	return r.update(email, func(u *models.User) { u.IsAdmin = isAdmin })
}
