package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the session identity the gateway hands to a page after login.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	DeviceID  string `json:"device_id"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates session tokens. Token lifetime matches the
// session record's validity window, so an expired token and an expired
// session agree.
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewTokenManager creates a new session token manager.
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Generate creates a new signed token for a session.
func (t *TokenManager) Generate(accountID, email, deviceID string) (string, error) {
	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "powerplay-portal",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and validates a session token.
func (t *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
