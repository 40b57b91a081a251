// Package auth provides JWT token issuing and validation for the reference
// server. The signing service is constructed by the auth startup task and
// exposed to the rest of the application as a startup override.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/ignition/internal/config"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the subject.
	GenerateToken(ctx context.Context, subject uuid.UUID) (string, error)

	// ValidateToken validates the token string and returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of a token.
type Claims struct {
	Subject   uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// hmacJWTService is an implementation of JWTService using HMAC-SHA signing.
type hmacJWTService struct {
	signingKey    []byte
	tokenLifetime time.Duration
	timeFunc      func() time.Time // Injectable for testing
}

var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &hmacJWTService{
		signingKey:    []byte(cfg.JWTSecret),
		tokenLifetime: time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		timeFunc:      time.Now,
	}, nil
}

// GenerateToken creates a signed JWT access token for the subject.
func (s *hmacJWTService) GenerateToken(ctx context.Context, subject uuid.UUID) (string, error) {
	now := s.timeFunc()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}

// ValidateToken validates the token string and returns its claims.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithTimeFunc(s.timeFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	reg, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	subject, err := uuid.Parse(reg.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", err)
	}

	claims := &Claims{Subject: subject}
	if reg.IssuedAt != nil {
		claims.IssuedAt = reg.IssuedAt.Time
	}
	if reg.ExpiresAt != nil {
		claims.ExpiresAt = reg.ExpiresAt.Time
	}
	return claims, nil
}
