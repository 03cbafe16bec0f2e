package auth

import (
	"testing"
	"time"

	"taskgate/internal/platform/config"
)

func newTestService() *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateAccessToken("usr_1", "org_1", "owner", "a@b.co")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "usr_1" || claims.OrganizationID != "org_1" || claims.Role != "owner" {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	if _, err := svc.ValidateRefreshToken(token); err == nil {
		t.Error("Access token must not be accepted as a refresh token")
	}
}

func TestRefreshToken(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateRefreshToken("usr_1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	userID, err := svc.ValidateRefreshToken(token)
	if err != nil || userID != "usr_1" {
		t.Errorf("Expected usr_1, got %q (%v)", userID, err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Refresh token must not be accepted as an access token")
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := newTestService()
	token, _ := svc.GenerateAccessToken("usr_1", "org_1", "member", "a@b.co")

	other := NewTokenService(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Minute})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Expected signature mismatch to fail")
	}

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Expected expired token to fail")
	}

	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Error("Expected garbage to fail")
	}
}
