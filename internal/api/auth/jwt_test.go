package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-32-bytes-long!!!!!!!")

func TestGenerateAndValidateToken(t *testing.T) {
	s := NewJWTService(testSecret, 15*time.Minute)

	token, err := s.GenerateToken(3, "dops", "Dana Ops")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != 3 || claims.Username != "dops" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.FullName != "Dana Ops" {
		t.Errorf("full name = %q", claims.FullName)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	s := NewJWTService(testSecret, 15*time.Minute)
	other := NewJWTService([]byte("another-secret-32-bytes-long!!!!"), 15*time.Minute)

	token, err := other.GenerateToken(3, "dops", "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := s.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	s := NewJWTService(testSecret, -time.Minute)

	token, err := s.GenerateToken(3, "dops", "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := s.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	s := NewJWTService(testSecret, 15*time.Minute)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   3,
		Username: "dops",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := s.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure for wrong issuer")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	s := NewJWTService(testSecret, 15*time.Minute)
	if _, err := s.ValidateToken("not-a-token"); err == nil {
		t.Fatal("expected validation failure for malformed token")
	}
}
