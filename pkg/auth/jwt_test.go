package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Generate("uid-1", "alice@example.com", "device_abc123")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.AccountID != "uid-1" || claims.Email != "alice@example.com" || claims.DeviceID != "device_abc123" {
		t.Errorf("claims round-trip mismatch: %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Generate("uid-1", "alice@example.com", "device_abc123")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := NewTokenManager("secret-b", time.Hour).Validate(token); err == nil {
		t.Fatal("token signed with a different secret must not validate")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	token, err := tm.Generate("uid-1", "alice@example.com", "device_abc123")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := tm.Validate(token); err == nil {
		t.Fatal("expired token must not validate")
	}
}
