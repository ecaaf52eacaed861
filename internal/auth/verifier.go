package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"foundlink/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the result of a successful credential validation.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// Claims is the token payload issued by the external auth platform.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer JWTs signed with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ValidateToken verifies the JWT and returns the authenticated identity.
func (v *Verifier) ValidateToken(_ context.Context, token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	return Identity{UserID: claims.Subject, Name: claims.Name, Role: role}, nil
}
