package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/cryptox"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
)

// OTPCodeLength is the number of decimal digits in an issued code.
const OTPCodeLength = 6

// OTPEngine issues and validates one-time codes. Every code is single-use
// and scoped to an (email, purpose) pair; expiry is checked lazily.
type OTPEngine struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         func() time.Time
}

func NewOTPEngine(tx dbx.Transactor, m repomanager.RepositoryManager, ttl time.Duration) *OTPEngine {
	return &OTPEngine{tx: tx, repomanager: m, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (e *OTPEngine) WithClock(now func() time.Time) *OTPEngine {
	e.now = now
	return e
}

// Issue generates a fresh code for (email, purpose), invalidating every
// earlier unconsumed one.
func (e *OTPEngine) Issue(ctx context.Context, email string, purpose models.OTPPurpose) (string, error) {
	email = NormalizeEmail(email)

	code, err := cryptox.NumericCode(OTPCodeLength)
	if err != nil {
		return "", fmt.Errorf("error generating otp: %w", err)
	}

	otp := &models.OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: e.now().Add(e.ttl),
	}

	err = e.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := e.repomanager.OTPs(tx)
		if err := repo.LockPair(ctx, email, purpose); err != nil {
			return fmt.Errorf("error locking otps: %w", err)
		}
		if _, err := repo.InvalidateActive(ctx, email, purpose); err != nil {
			return fmt.Errorf("error invalidating otps: %w", err)
		}
		if err := repo.Create(ctx, otp); err != nil {
			return fmt.Errorf("error storing otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Validate consumes the newest active code for (email, purpose) if it
// equals code and has not expired. A code validates at most once.
func (e *OTPEngine) Validate(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	email = NormalizeEmail(email)

	return e.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := e.repomanager.OTPs(tx)

		otp, err := repo.LatestActiveForUpdate(ctx, email, purpose)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrOTPNotFound
			}
			return fmt.Errorf("error loading otp: %w", err)
		}

		if !cryptox.EqualStrings(otp.Code, code) {
			return common.ErrOTPMismatch
		}
		if !e.now().Before(otp.ExpiresAt) {
			return common.ErrOTPExpired
		}

		ok, err := repo.Consume(ctx, otp.ID)
		if err != nil {
			return fmt.Errorf("error consuming otp: %w", err)
		}
		if !ok {
			return common.ErrOTPNotFound
		}
		return nil
	})
}

// PurgeExpired deletes consumed and expired codes.
func (e *OTPEngine) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := e.repomanager.OTPs(e.tx.Conn()).DeleteExpired(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("error purging otps: %w", err)
	}
	return n, nil
}
