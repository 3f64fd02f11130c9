package model

// ========== Auth DTOs ==========

type LoginRequest struct {
	Email    string        `json:"email" binding:"required,email"`
	Password string        `json:"password" binding:"required,min=6"`
	Device   DeviceSignals `json:"device" binding:"required"`
}

type LoginResponse struct {
	Token   string        `json:"token"`
	Session SessionRecord `json:"session"`
}

// SessionStatusResponse is what GET /auth/session answers on every page load.
type SessionStatusResponse struct {
	State   SessionState   `json:"state"`
	Session *SessionRecord `json:"session,omitempty"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types pushed to open pages
const (
	WSEventDeviceSuperseded = "device_superseded"
	WSEventSessionExpired   = "session_expired"
	WSEventUpdateAvailable  = "update_available"
	WSEventControllerChange = "controller_change"
	WSEventSkipWaiting      = "SKIP_WAITING"
)

// DeviceSupersededEvent tells the losing device to show the multi-device
// warning for a bounded window and drop to the login surface.
type DeviceSupersededEvent struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	DisplayMs int64  `json:"display_ms"`
}

// UpdateAvailableEvent is emitted when a new cache generation is installed
// while an older one is still serving.
type UpdateAvailableEvent struct {
	Generation string `json:"generation"`
}

// ControllerChangeEvent triggers the one-time page reload after activation.
type ControllerChangeEvent struct {
	Generation string `json:"generation"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
