// Package common contains shared constants and sentinel errors used across
// the EMS server components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// DefaultDeviceType is recorded on sessions when the client does not send one.
const DefaultDeviceType = "web"

// DateLayout is the wire format of calendar dates (attendance, filters).
const DateLayout = "2006-01-02"
