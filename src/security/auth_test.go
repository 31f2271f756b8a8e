package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(testSecret, time.Minute)
	token, err := auth.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	owner, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if owner != "user-1" {
		t.Errorf("owner = %q, want user-1", owner)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	auth := NewAuthService(testSecret, time.Minute)
	issued := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	valid, err := auth.GenerateToken("user-1")
	if err != nil {
		t.Fatal(err)
	}

	other := NewAuthService("ffffffffffffffffffffffffffffffff", time.Minute)
	other.now = auth.now
	foreign, err := other.GenerateToken("user-1")
	if err != nil {
		t.Fatal(err)
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": issued.Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		now   time.Time
	}{
		{"expired", valid, issued.Add(2 * time.Minute)},
		{"wrong secret", foreign, issued},
		{"missing subject", noSub, issued},
		{"garbage", "not-a-token", issued},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth.now = func() time.Time { return tt.now }
			if _, err := auth.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, err := NewAuthService("short", time.Minute).GenerateToken("user-1"); err == nil {
		t.Error("expected error for a short secret")
	}
	if _, err := NewAuthService(testSecret, time.Minute).GenerateToken(""); err == nil {
		t.Error("expected error for an empty owner")
	}
}
