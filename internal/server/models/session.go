package models

import "time"

// Session is a login of one user on one device. Only token fingerprints
// are stored; the raw tokens are handed to the client once.
type Session struct {
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	DeviceType       string
	IssuedAt         time.Time
	IsActive         bool
	EndedAt          *time.Time
}
