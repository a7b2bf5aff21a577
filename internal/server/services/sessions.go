package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/cryptox"
	"github.com/dmitrijs2005/ems/internal/server/auth"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/google/uuid"
)

// SessionStore persists sessions. Activate must atomically end every
// active session of the user and make s the only active one.
type SessionStore interface {
	Activate(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	UpdateAccessHash(ctx context.Context, id string, accessTokenHash string) error
	DeactivateUser(ctx context.Context, userID string, at time.Time) error
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID    string
	SessionID string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionRegistry issues, validates and revokes bearer tokens while keeping
// at most one active session per user.
type SessionRegistry struct {
	store      SessionStore
	signer     *auth.Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSessionRegistry(store SessionStore, signer *auth.Signer, accessTTL, refreshTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{
		store:      store,
		signer:     signer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for session timestamps. Token
// expiry follows the signer's clock.
func (r *SessionRegistry) WithClock(now func() time.Time) *SessionRegistry {
	r.now = now
	return r
}

// CreateSession starts a new session for userID, superseding any active one.
func (r *SessionRegistry) CreateSession(ctx context.Context, userID, deviceType string) (*TokenPair, error) {
	if deviceType == "" {
		deviceType = common.DefaultDeviceType
	}
	sid := uuid.NewString()

	access, err := r.signer.Sign(userID, sid, auth.AccessToken, r.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, err := r.signer.Sign(userID, sid, auth.RefreshToken, r.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}

	s := &models.Session{
		ID:               sid,
		UserID:           userID,
		AccessTokenHash:  cryptox.HashToken(access),
		RefreshTokenHash: cryptox.HashToken(refresh),
		DeviceType:       deviceType,
		IssuedAt:         r.now().UTC(),
		IsActive:         true,
	}
	if err := r.store.Activate(ctx, s); err != nil {
		return nil, fmt.Errorf("error activating session: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccessToken resolves an access token to its principal. The token
// must be well formed and unexpired, and must be the current access token
// of an active session.
func (r *SessionRegistry) ValidateAccessToken(ctx context.Context, token string) (*Principal, error) {
	claims, err := r.signer.Parse(token, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	s, err := r.activeSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !cryptox.EqualStrings(s.AccessTokenHash, cryptox.HashToken(token)) {
		return nil, common.ErrRevoked
	}

	return &Principal{UserID: s.UserID, SessionID: s.ID}, nil
}

// Refresh mints a new access token for the session of refreshToken. The
// previous access token stops validating; the refresh token is unchanged.
func (r *SessionRegistry) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := r.signer.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, err
	}

	s, err := r.activeSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !cryptox.EqualStrings(s.RefreshTokenHash, cryptox.HashToken(refreshToken)) {
		return nil, common.ErrRevoked
	}

	access, err := r.signer.Sign(s.UserID, s.ID, auth.AccessToken, r.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}

	if err := r.store.UpdateAccessHash(ctx, s.ID, cryptox.HashToken(access)); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRevoked
		}
		return nil, fmt.Errorf("error updating session: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Revoke ends the user's active session, if any.
func (r *SessionRegistry) Revoke(ctx context.Context, userID string) error {
	if err := r.store.DeactivateUser(ctx, userID, r.now().UTC()); err != nil {
		return fmt.Errorf("error revoking session: %w", err)
	}
	return nil
}

func (r *SessionRegistry) activeSession(ctx context.Context, claims *auth.Claims) (*models.Session, error) {
	s, err := r.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRevoked
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}
	if !s.IsActive {
		return nil, common.ErrRevoked
	}
	if s.UserID != claims.Subject {
		return nil, common.ErrInvalidToken
	}
	return s, nil
}
