// internal/common/utils/jwt.go
// Verification of tokens minted by the account service

package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTClaims are the claims this service reads.
type JWTClaims struct {
	UserID    int64
	Type      string // "access" or "refresh"
	ExpiresAt int64
	IssuedAt  int64
	Issuer    string
	Subject   string
}

// userIDClaim is written as a decimal string; numeric values from older
// issuers are accepted too.
type userIDClaim int64

func (u userIDClaim) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(u), 10))), nil
}

func (u *userIDClaim) UnmarshalJSON(b []byte) error {
	id, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user_id %s", b)
	}
	*u = userIDClaim(id)
	return nil
}

type tokenClaims struct {
	UserID userIDClaim `json:"user_id"`
	Type   string      `json:"type"`
	jwt.RegisteredClaims
}

var tokenParser = jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

// GenerateJWT signs claims with HS256. Used by tooling and tests; production
// tokens come from the account service.
func GenerateJWT(claims *JWTClaims, secret string) (string, error) {
	tc := tokenClaims{
		UserID: userIDClaim(claims.UserID),
		Type:   claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  claims.Issuer,
			Subject: claims.Subject,
		},
	}
	if claims.ExpiresAt != 0 {
		tc.ExpiresAt = jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}
	if claims.IssuedAt != 0 {
		tc.IssuedAt = jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateJWT accepts only HS256 tokens that carry an expiry and a positive
// user id.
func ValidateJWT(tokenString string, secret string) (*JWTClaims, error) {
	var tc tokenClaims
	_, err := tokenParser.ParseWithClaims(tokenString, &tc, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if tc.ExpiresAt == nil {
		return nil, errors.New("token has no expiry")
	}
	if tc.UserID <= 0 {
		return nil, errors.New("invalid user_id in token")
	}

	out := &JWTClaims{
		UserID:    int64(tc.UserID),
		Type:      tc.Type,
		ExpiresAt: tc.ExpiresAt.Unix(),
		Issuer:    tc.Issuer,
		Subject:   tc.Subject,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Unix()
	}
	return out, nil
}
