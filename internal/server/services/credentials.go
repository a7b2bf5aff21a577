// Package services contains server-side business logic: credentials, OTPs,
// sessions, the auth orchestrator, attendance and leaves.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/cryptox"
	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
)

// NormalizeEmail trims and lower-cases an address. Every lookup goes
// through it, so matching is case-insensitive and exact.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address ("a@b.c"), no display name.
func ValidateEmail(email string) error {
	if email == "" {
		return common.NewValidationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return common.NewValidationError("invalid email address")
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return common.NewValidationError("invalid email address")
	}
	return nil
}

// CredentialStore owns user accounts and password hashes.
type CredentialStore struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
}

func NewCredentialStore(tx dbx.Transactor, m repomanager.RepositoryManager) *CredentialStore {
	return &CredentialStore{tx: tx, repomanager: m}
}

// CreateUser stores a new unverified account. Only the bcrypt hash of
// password is kept.
func (s *CredentialStore) CreateUser(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" {
		return nil, common.NewValidationError("user_name is required")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, common.NewValidationError("password is required")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.NewValidationError("password is too long")
	}

	user := &models.User{Email: email, UserName: name, PasswordHash: hash}
	u, err := s.repomanager.Users(s.tx.Conn()).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// ReplaceUnverified rebinds a pending account to the latest signup's name
// and password. It fails with common.ErrDuplicateEmail once the account is
// verified.
func (s *CredentialStore) ReplaceUnverified(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" {
		return nil, common.NewValidationError("user_name is required")
	}
	if password == "" {
		return nil, common.NewValidationError("password is required")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.NewValidationError("password is too long")
	}

	if err := s.repomanager.Users(s.tx.Conn()).ReplaceUnverified(ctx, email, name, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return s.GetByEmail(ctx, email)
}

// VerifyCredentials checks email and password. Verification status is only
// reported once the password has matched.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !cryptox.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrBadPassword
	}
	if !user.IsVerified {
		return nil, common.ErrNotVerified
	}
	return user, nil
}

func (s *CredentialStore) MarkVerified(ctx context.Context, email string) error {
	if err := s.repomanager.Users(s.tx.Conn()).MarkVerified(ctx, NormalizeEmail(email)); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error verifying user: %w", err)
	}
	return nil
}

func (s *CredentialStore) UpdatePassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return common.NewValidationError("new_password is required")
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return common.NewValidationError("password is too long")
	}

	if err := s.repomanager.Users(s.tx.Conn()).UpdatePassword(ctx, NormalizeEmail(email), hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

func (s *CredentialStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.tx.Conn()).GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *CredentialStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.tx.Conn()).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// SetAdmin grants or withdraws the admin capability.
func (s *CredentialStore) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	if err := s.repomanager.Users(s.tx.Conn()).SetAdmin(ctx, NormalizeEmail(email), isAdmin); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}
