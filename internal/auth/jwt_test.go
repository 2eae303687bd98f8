package auth

import (
	"testing"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

var ana = model.UserSnapshot{ID: "u-1", Name: "Ana", Email: "ana@example.com", Role: model.RoleAdmin}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, issued, err := GenerateToken(secret, ana, time.Now())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.ID != issued.ID || claims.ID == "" {
		t.Errorf("expected jti %q, got %q", issued.ID, claims.ID)
	}

	sess := claims.Session()
	if sess.User != ana {
		t.Errorf("expected session user %+v, got %+v", ana, sess.User)
	}
	if !sess.IsAdmin() {
		t.Error("expected admin session")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := GenerateToken("secret1", ana, time.Now())

	if _, err := ValidateToken("secret2", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _, _ := GenerateToken("secret", ana, time.Now().Add(-TokenExpiry-time.Minute))
	if _, err := ValidateToken("secret", token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	token, _, _ := GenerateToken("test", ana, now)
	claims, err := ValidateToken("test", token)
	if err != nil {
		t.Fatal(err)
	}

	diff := now.Add(TokenExpiry).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("expected match: %v", err)
	}
	if err := CheckPassword(hash, "battery staple"); err != ErrBadCredentials {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
}
