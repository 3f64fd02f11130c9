package model

import "time"

// SessionState is where the guard currently is in the login lifecycle.
type SessionState string

const (
	StateLoggedOut        SessionState = "logged_out"
	StateAuthenticating   SessionState = "authenticating"
	StateActive           SessionState = "active"
	StateExpired          SessionState = "expired"
	StateDeviceSuperseded SessionState = "device_superseded"
)

// SessionRecord is the locally persisted proof of a successful login.
// It is written wholesale on login and never mutated in place.
type SessionRecord struct {
	Email     string    `json:"email"`
	AccountID string    `json:"account_id"`
	DeviceID  string    `json:"device_id"`
	LoginTime time.Time `json:"login_time"`
	Expiry    time.Time `json:"expiry"`
}

// Expired reports whether the session's validity window has passed.
func (s *SessionRecord) Expired(now time.Time) bool {
	return now.After(s.Expiry)
}
