package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestUserIDFromAuthHeaderHS256(t *testing.T) {
	auth := NewSharedSecretAuth([]byte("secret"), "party", "")
	token := signHS256(t, "secret", jwt.MapClaims{"sub": "device-1", "aud": "party", "exp": time.Now().Add(time.Hour).Unix()})

	sub, err := auth.UserIDFromAuthHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "device-1" {
		t.Fatalf("unexpected subject %q", sub)
	}
}

func TestUserIDFromAuthHeaderRejects(t *testing.T) {
	auth := NewSharedSecretAuth([]byte("secret"), "party", "")
	cases := map[string]string{
		"missing":      "",
		"scheme":       "Basic abc.def.ghi",
		"periods":      "Bearer " + strings.Repeat(".", 10),
		"wrong secret": "Bearer " + signHS256(t, "other", jwt.MapClaims{"sub": "x", "aud": "party", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      "Bearer " + signHS256(t, "secret", jwt.MapClaims{"sub": "x", "aud": "party", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no expiry":    "Bearer " + signHS256(t, "secret", jwt.MapClaims{"sub": "x", "aud": "party"}),
		"audience":     "Bearer " + signHS256(t, "secret", jwt.MapClaims{"sub": "x", "aud": "other", "exp": time.Now().Add(time.Hour).Unix()}),
		"no subject":   "Bearer " + signHS256(t, "secret", jwt.MapClaims{"aud": "party", "exp": time.Now().Add(time.Hour).Unix()}),
		"issued later": "Bearer " + signHS256(t, "secret", jwt.MapClaims{"sub": "x", "aud": "party", "exp": time.Now().Add(2 * time.Hour).Unix(), "iat": time.Now().Add(time.Hour).Unix()}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := auth.UserIDFromAuthHeader(header); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestJWKSAuthWithoutKeys(t *testing.T) {
	auth := NewJWKSAuth(nil, "party", "")
	token := signHS256(t, "secret", jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()})
	if _, err := auth.UserIDFromAuthHeader("Bearer " + token); err == nil {
		t.Fatalf("HS256 token must be rejected in JWKS mode")
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newServer(t, func(d *Deps) {
		d.Auth = NewSharedSecretAuth([]byte("secret"), "", "")
	})

	if rec := s.do(t, http.MethodGet, "/api/notes", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	token := signHS256(t, "secret", jwt.MapClaims{"sub": "device-1", "exp": time.Now().Add(time.Hour).Unix()})
	if rec := s.do(t, http.MethodGet, "/api/notes", "", "Authorization", "Bearer "+token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/notes?token="+token, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected query token to be accepted for GET, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/notes?token="+token, `{"text":"x"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected query token to be ignored for POST, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz must not require auth, got %d", rec.Code)
	}
}
