package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/logging"
	"github.com/dmitrijs2005/ems/internal/server/models"
)

// MaxDeviceTypeLength bounds the device label recorded on a session.
const MaxDeviceTypeLength = 50

const (
	verifySubject = "Verify Your Email - Employee Management System"
	resetSubject  = "Reset Your Password - Employee Management System"
)

// Mailer delivers one-time codes to users.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SignupRequest is the input of AuthService.Signup.
type SignupRequest struct {
	UserName        string
	Email           string
	Password        string
	ReEnterPassword string
}

// ResetPasswordRequest is the input of AuthService.ResetPassword.
type ResetPasswordRequest struct {
	Email           string
	OTP             string
	NewPassword     string
	ConfirmPassword string
}

// AuthService drives the account lifecycle: signup, email verification,
// login, logout, password reset and token refresh.
type AuthService struct {
	creds    *CredentialStore
	otps     *OTPEngine
	sessions *SessionRegistry
	mailer   Mailer
	log      logging.Logger
}

func NewAuthService(creds *CredentialStore, otps *OTPEngine, sessions *SessionRegistry, mailer Mailer, log logging.Logger) *AuthService {
	return &AuthService{
		creds:    creds,
		otps:     otps,
		sessions: sessions,
		mailer:   mailer,
		log:      log.With("component", "auth"),
	}
}

// Signup registers an unverified account and mails a verification code.
// Signing up again with an unverified email replaces its name and password
// with the new ones, re-sends a fresh code and keeps the account id.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	email := NormalizeEmail(req.Email)

	switch {
	case strings.TrimSpace(req.UserName) == "":
		return nil, common.NewValidationError("user_name is required")
	case email == "":
		return nil, common.NewValidationError("email is required")
	case req.Password == "":
		return nil, common.NewValidationError("password is required")
	case req.ReEnterPassword == "":
		return nil, common.NewValidationError("reEnterPassword is required")
	case req.Password != req.ReEnterPassword:
		return nil, common.NewValidationError("passwords do not match")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.creds.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsVerified {
			return nil, common.ErrDuplicateEmail
		}
		// the pending account follows whoever proves the mailbox last
		user, err = s.creds.ReplaceUnverified(ctx, req.UserName, email, req.Password)
	case errors.Is(err, common.ErrorNotFound):
		user, err = s.creds.CreateUser(ctx, req.UserName, email, req.Password)
		if errors.Is(err, common.ErrDuplicateEmail) {
			// lost a race with a concurrent signup
			user, err = s.creds.ReplaceUnverified(ctx, req.UserName, email, req.Password)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.sendCode(ctx, email, models.OTPPurposeVerifyEmail); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "signup", "user_id", user.ID)
	return user, nil
}

// VerifyOTP consumes a verify_email code, marks the account verified and
// opens its first session.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, common.NewValidationError("email and otp are required")
	}

	if err := s.otps.Validate(ctx, email, models.OTPPurposeVerifyEmail, code); err != nil {
		return nil, err
	}
	if err := s.creds.MarkVerified(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	pair, err := s.sessions.CreateSession(ctx, user.ID, common.DefaultDeviceType)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "email verified", "user_id", user.ID)
	return pair, nil
}

// Login checks credentials and opens a session, ending any other session
// of the same user.
func (s *AuthService) Login(ctx context.Context, email, password, deviceType string) (*models.User, *TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, common.NewValidationError("Email and password are required")
	}

	deviceType = strings.TrimSpace(deviceType)
	if deviceType == "" {
		deviceType = common.DefaultDeviceType
	}
	if len(deviceType) > MaxDeviceTypeLength {
		return nil, nil, common.NewValidationError("deviceType must be at most %d characters", MaxDeviceTypeLength)
	}

	user, err := s.creds.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrBadPassword
		}
		return nil, nil, err
	}

	pair, err := s.sessions.CreateSession(ctx, user.ID, deviceType)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info(ctx, "login", "user_id", user.ID, "device_type", deviceType)
	return user, pair, nil
}

// Logout ends the caller's session.
func (s *AuthService) Logout(ctx context.Context, p *Principal) error {
	if err := s.sessions.Revoke(ctx, p.UserID); err != nil {
		return err
	}
	s.log.Info(ctx, "logout", "user_id", p.UserID, "session_id", p.SessionID)
	return nil
}

// ForgotPassword mails a reset_password code to an existing account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	if _, err := s.creds.GetByEmail(ctx, email); err != nil {
		return err
	}

	return s.sendCode(ctx, email, models.OTPPurposeResetPassword)
}

// ResetPassword replaces the caller's password after checking a
// reset_password code. The email must be the caller's own.
func (s *AuthService) ResetPassword(ctx context.Context, p *Principal, req ResetPasswordRequest) error {
	email := NormalizeEmail(req.Email)

	switch {
	case email == "":
		return common.NewValidationError("email is required")
	case req.OTP == "":
		return common.NewValidationError("otp is required")
	case req.NewPassword == "":
		return common.NewValidationError("new_password is required")
	case req.NewPassword != req.ConfirmPassword:
		return common.NewValidationError("passwords do not match")
	}

	caller, err := s.creds.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if caller.Email != email {
		return common.ErrForbidden
	}

	if err := s.otps.Validate(ctx, email, models.OTPPurposeResetPassword, req.OTP); err != nil {
		return err
	}
	if err := s.creds.UpdatePassword(ctx, email, req.NewPassword); err != nil {
		return err
	}

	s.log.Info(ctx, "password reset", "user_id", caller.ID)
	return nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.NewValidationError("refresh is required")
	}
	return s.sessions.Refresh(ctx, refreshToken)
}

// Authenticate resolves a bearer access token to its principal.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	return s.sessions.ValidateAccessToken(ctx, accessToken)
}

// IsAdmin reports whether the user holds the admin capability.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.creds.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *AuthService) sendCode(ctx context.Context, email string, purpose models.OTPPurpose) error {
	code, err := s.otps.Issue(ctx, email, purpose)
	if err != nil {
		return err
	}

	subject, body := verifySubject, fmt.Sprintf("Your OTP for email verification is: %s", code)
	if purpose == models.OTPPurposeResetPassword {
		subject, body = resetSubject, fmt.Sprintf("Your OTP for password reset is: %s", code)
	}

	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		return fmt.Errorf("error sending otp: %w", err)
	}
	return nil
}
