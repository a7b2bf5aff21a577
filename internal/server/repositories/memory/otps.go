package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/google/uuid"
)

type otpRepo struct {
	st *state
}

func (r *otpRepo) Create(_ context.Context, otp *models.OTP) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	otp.ID = uuid.NewString()
	otp.CreatedAt = time.Now()
	otp.Consumed = false

	stored := *otp
	r.st.otps = append(r.st.otps, &stored)
	return nil
}

// LockPair is a no-op; the memory transactor already runs one unit of work
// at a time.
func (r *otpRepo) LockPair(context.Context, string, models.OTPPurpose) error {
	return nil
}

func (r *otpRepo) InvalidateActive(_ context.Context, email string, purpose models.OTPPurpose) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var n int64
	for _, o := range r.st.otps {
		if o.Email == email && o.Purpose == purpose && !o.Consumed {
			o.Consumed = true
			n++
		}
	}
	return n, nil
}

func (r *otpRepo) LatestActiveForUpdate(_ context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for i := len(r.st.otps) - 1; i >= 0; i-- {
		o := r.st.otps[i]
		if o.Email == email && o.Purpose == purpose && !o.Consumed {
			out := *o
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *otpRepo) Consume(_ context.Context, id string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, o := range r.st.otps {
		if o.ID == id {
			if o.Consumed {
				return false, nil
			}
			o.Consumed = true
			return true, nil
		}
	}
	return false, nil
}

func (r *otpRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	kept := r.st.otps[:0]
	var n int64
	for _, o := range r.st.otps {
		if o.Consumed || !now.Before(o.ExpiresAt) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	r.st.otps = kept
	return n, nil
}
