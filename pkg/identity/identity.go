// Package identity wraps the external identity provider the portal delegates
// credential verification to. The gateway never stores or checks passwords
// itself.
package identity

import "context"

// User is the provider's view of an authenticated account.
type User struct {
	UID   string
	Email string
}

// Provider is the identity provider contract the session guard depends on.
type Provider interface {
	// SignIn verifies credentials with the provider. On failure the returned
	// error carries the provider's message verbatim.
	SignIn(ctx context.Context, email, password string) (*User, error)

	// SignOut revokes the account's provider-side session.
	SignOut(ctx context.Context, uid string) error
}

// AuthError is a credential failure reported by the provider. Its message is
// surfaced to the caller unchanged.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
