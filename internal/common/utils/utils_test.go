package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestValidateStruct(t *testing.T) {
	type params struct {
		Limit  int    `validate:"gte=0,lte=100"`
		Status string `validate:"omitempty,oneof=active paused"`
	}

	if err := ValidateStruct(params{Limit: 10, Status: "active"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateStruct(params{Limit: 101, Status: "gone"})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Limit must be at most 100") || !strings.Contains(msg, "Status must be one of") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateJWT(&JWTClaims{
		UserID:    42,
		Type:      "access",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
		IssuedAt:  time.Now().Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token, secret)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Type != "access" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ValidateJWT(token, "other-secret"); err == nil {
		t.Error("token signed with another secret should be rejected")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	token, err := GenerateJWT(&JWTClaims{
		UserID:    1,
		Type:      "access",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, "s")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ValidateJWT(token, "s"); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestValidateJWTClaimShapes(t *testing.T) {
	const secret = "claims-secret"
	exp := time.Now().Add(time.Hour).Unix()

	sign := func(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	tests := []struct {
		name    string
		method  jwt.SigningMethod
		claims  jwt.MapClaims
		wantID  int64
		wantErr bool
	}{
		{"string user id", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "42", "type": "access", "exp": exp}, 42, false},
		{"numeric user id", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42, "type": "access", "exp": exp}, 42, false},
		{"missing user id", jwt.SigningMethodHS256, jwt.MapClaims{"type": "access", "exp": exp}, 0, true},
		{"garbage user id", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "abc", "exp": exp}, 0, true},
		{"no expiry", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "42", "type": "access"}, 0, true},
		{"other hmac algorithm", jwt.SigningMethodHS512, jwt.MapClaims{"user_id": "42", "exp": exp}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateJWT(sign(t, tt.method, tt.claims), secret)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected rejection, got %+v", claims)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateJWT: %v", err)
			}
			if claims.UserID != tt.wantID || claims.ExpiresAt != exp {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, http.StatusBadRequest, "bad limit")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"bad limit"}` {
		t.Errorf("body = %s", body)
	}
}
