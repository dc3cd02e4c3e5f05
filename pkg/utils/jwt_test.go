package utils

import (
	"errors"
	"testing"
	"time"

	"taskboard-backend/pkg/models"
)

func testUser() *models.User {
	return &models.User{ID: "u1", Email: "ann@example.com", Role: models.UserRoleAdmin}
}

func TestTokenPairRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour)
	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if pair.ExpiresIn != 60 {
		t.Errorf("ExpiresIn = %d, want 60", pair.ExpiresIn)
	}

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ann@example.com" || claims.Role != models.UserRoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token id not set")
	}

	if _, err := svc.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
}

func TestTokenTypeMismatch(t *testing.T) {
	svc := NewJWTService("secret", 0, 0)
	pair, _ := svc.GenerateTokenPair(testUser())

	if _, err := svc.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
	if _, err := svc.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access: %v", err)
	}
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour)
	pair, _ := svc.GenerateTokenPair(testUser())

	other := NewJWTService("other", time.Minute, time.Hour)
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret accepted: %v", err)
	}

	later := time.Now().Add(2 * time.Minute)
	svc.now = func() time.Time { return later }
	if _, err := svc.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}
	if _, err := svc.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("refresh token should still be valid: %v", err)
	}
}

func TestGenerateURLToken(t *testing.T) {
	a, err := GenerateURLToken(16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateURLToken(16)
	if a == b || len(a) != 22 {
		t.Errorf("tokens %q %q", a, b)
	}
}
