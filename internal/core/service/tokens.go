package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/user-service/internal/core/domain"
)

// JWTTokens issues and verifies HS256 tokens whose subject is the JSON-encoded
// principal, so authenticating a request needs no store lookup.
type JWTTokens struct {
	key []byte
	now func() time.Time
}

func NewJWTTokens(signingKey string) *JWTTokens {
	return &JWTTokens{key: []byte(signingKey), now: time.Now}
}

// Issue signs a token for principal valid for validity from now.
func (t *JWTTokens) Issue(principal domain.Principal, issuer string, validity time.Duration) (domain.Authentication, error) {
	subject, err := json.Marshal(principal)
	if err != nil {
		return domain.Authentication{}, fmt.Errorf("encode principal: %w", err)
	}

	issuedAt := jwt.NewNumericDate(t.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(validity))
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   string(subject),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return domain.Authentication{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.Authentication{Token: signed, Validity: expiresAt.UnixMilli()}, nil
}

// Verify checks signature, algorithm, issuer and expiry, then decodes the
// principal. Every failure is reported as domain.ErrInvalidToken.
func (t *JWTTokens) Verify(token, expectedIssuer string) (*domain.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(expectedIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	var principal domain.Principal
	if err := json.Unmarshal([]byte(claims.Subject), &principal); err != nil {
		return nil, fmt.Errorf("%w: subject: %v", domain.ErrInvalidToken, err)
	}
	if principal.ID == 0 {
		return nil, fmt.Errorf("%w: subject carries no identity", domain.ErrInvalidToken)
	}
	return &principal, nil
}
