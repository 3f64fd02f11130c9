package model

import "time"

// DeviceRecord is the single remote document asserting which device currently
// owns an account's session. A fresh login overwrites it unconditionally,
// which is what enforces "one active device per account".
type DeviceRecord struct {
	DeviceID     string    `json:"device_id" firestore:"deviceId"`
	LastLogin    time.Time `json:"last_login" firestore:"lastLogin"`
	LastVerified time.Time `json:"last_verified" firestore:"lastVerified"`
	UserAgent    string    `json:"user_agent" firestore:"userAgent"`
	Platform     string    `json:"platform" firestore:"platform"`
}

// DeviceSignals are the environment values a page samples for fingerprinting.
// The tuple order is fixed; identical signals must always produce the same
// device identifier.
type DeviceSignals struct {
	UserAgent         string `json:"user_agent"`
	Language          string `json:"language"`
	ScreenResolution  string `json:"screen_resolution"` // e.g. "1920x1080"
	TimezoneOffsetMin int    `json:"timezone_offset_min"`
	RenderFingerprint string `json:"render_fingerprint"` // opaque canvas sample
	Platform          string `json:"platform"`
}
