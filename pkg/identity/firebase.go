package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const signInURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword?key="

// Config holds Firebase connection configuration.
type Config struct {
	CredentialsFile string
	ProjectID       string
	WebAPIKey       string // Identity Toolkit API key for password sign-in
}

// FirebaseProvider implements Provider against Firebase Authentication:
// password sign-in goes through the Identity Toolkit REST endpoint, sign-out
// revokes refresh tokens through the Admin SDK.
type FirebaseProvider struct {
	admin  *fbauth.Client
	apiKey string
	http   *http.Client
}

// NewFirebase creates a Firebase-backed identity provider.
func NewFirebase(ctx context.Context, cfg Config) (*FirebaseProvider, error) {
	opt := option.WithCredentialsFile(cfg.CredentialsFile)
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	admin, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}

	log.Println("✅ Firebase Auth initialized")
	return &FirebaseProvider{
		admin:  admin,
		apiKey: cfg.WebAPIKey,
		http:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type signInError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn verifies email+password with the Identity Toolkit endpoint.
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signInURL+p.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr signInError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, &AuthError{Code: apiErr.Error.Message, Message: apiErr.Error.Message}
		}
		return nil, &AuthError{Code: resp.Status, Message: "sign-in rejected by identity provider"}
	}

	var out signInResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return &User{UID: out.LocalID, Email: out.Email}, nil
}

// SignOut revokes the account's refresh tokens so provider-side state drops
// back to signed-out.
func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	return p.admin.RevokeRefreshTokens(ctx, uid)
}
