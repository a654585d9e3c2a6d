package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateClientToken(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	token, expiresAt, err := a.GenerateClientToken("client-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Errorf("Expected expiry about an hour away, got %s", expiresAt)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.ClientID != "client-1" {
		t.Errorf("Expected client ID client-1, got %s", claims.ClientID)
	}
	if claims.Role != RoleClient {
		t.Errorf("Expected role %s, got %s", RoleClient, claims.Role)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	if _, err := a.ValidateToken(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken, got %v", err)
	}

	other := NewAuthenticator("other-secret", time.Hour)
	token, _, _ := other.GenerateClientToken("client-1")
	if _, err := a.ValidateToken(token); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Errorf("Expected signature error, got %v", err)
	}

	expired := NewAuthenticator("secret", -time.Minute)
	token, _, _ = expired.GenerateClientToken("client-1")
	if _, err := a.ValidateToken(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("Expected expired error, got %v", err)
	}

	userToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		ClientID: "client-1",
		Role:     "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	if _, err := a.ValidateToken(userToken); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header, query, want string
	}{
		{"Bearer abc", "", "abc"},
		{"Bearer abc", "xyz", "abc"},
		{"", "xyz", "xyz"},
		{"Basic abc", "xyz", "xyz"},
		{"Bearer ", "", ""},
	}

	for _, tt := range tests {
		if got := ExtractToken(tt.header, tt.query); got != tt.want {
			t.Errorf("ExtractToken(%q, %q): expected %q, got %q", tt.header, tt.query, tt.want, got)
		}
	}
}
