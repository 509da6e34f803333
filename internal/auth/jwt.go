// Package auth issues and verifies the JWTs that protect the control-plane
// REST API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens and any other parse failure
	// that isn't specifically an expiry or signature mismatch.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken is returned when the token's exp claim has passed.
	ErrExpiredToken = errors.New("auth: token has expired")
	// ErrInvalidSignature is returned when the token's signing method or
	// signature doesn't match what this Manager expects.
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	// ErrMissingClaims is returned when a structurally valid token lacks a
	// required claim.
	ErrMissingClaims = errors.New("auth: missing required claims")
)

// Claims are the JWT claims issued for control-plane access. JobID, when
// set, scopes the token to a single transfer job (e.g. a one-time link to
// watch its websocket progress feed); an empty JobID is an operator token
// with access to the full job list.
type Claims struct {
	JobID    string `json:"job_id,omitempty"`
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Manager issues and verifies JWTs signed with a shared secret.
type Manager struct {
	secret []byte
	expire time.Duration
	issuer string
}

// NewManager builds a Manager. expire is the access-token lifetime in
// seconds.
func NewManager(secret string, expire int64, issuer string) *Manager {
	return &Manager{
		secret: []byte(secret),
		expire: time.Duration(expire) * time.Second,
		issuer: issuer,
	}
}

// GenerateToken issues a token for operator, optionally scoped to jobID
// (pass "" for an unscoped operator token).
func (m *Manager) GenerateToken(operator, jobID string) (string, error) {
	now := time.Now()
	claims := Claims{
		JobID:    jobID,
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyToken parses and validates tokenString, including expiry.
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Operator == "" {
		return nil, ErrMissingClaims
	}
	return claims, nil
}

// GetExpire returns the configured access-token lifetime.
func (m *Manager) GetExpire() time.Duration {
	return m.expire
}
