package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "test-secret"})
	user := uuid.New()

	token, err := svc.GenerateMemberToken(user, "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateMemberToken: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != user {
		t.Errorf("UserID = %v, %v; want %v", id, err, user)
	}
	if claims.Email != "a@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestAuthServiceRejects(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "test-secret"})
	other := NewAuthService(&config.Config{JWTSecret: "other-secret"})

	expired, _ := svc.GenerateMemberToken(uuid.New(), "", -time.Minute)
	foreign, _ := other.GenerateMemberToken(uuid.New(), "", time.Hour)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badSubjectToken, _ := badSubject.SignedString([]byte("test-secret"))

	for name, tok := range map[string]string{
		"expired":     expired,
		"wrong key":   foreign,
		"garbage":     "not-a-jwt",
		"bad subject": badSubjectToken,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tok); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := svc.ValidateToken(badSubjectToken); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("bad subject: err = %v, want ErrInvalidSubject", err)
	}
}
