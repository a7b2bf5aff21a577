package models

import "time"

// OTPPurpose scopes a one-time code; a code issued for one purpose never
// validates for another.
type OTPPurpose string

const (
	OTPPurposeVerifyEmail   OTPPurpose = "verify_email"
	OTPPurposeResetPassword OTPPurpose = "reset_password"
)

type OTP struct {
	ID        string
	Email     string
	Code      string
	Purpose   OTPPurpose
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}
