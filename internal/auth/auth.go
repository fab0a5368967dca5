package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"proconnect/internal/repositories"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
)

// Claims is the JWT payload issued at login by the session service.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens and resolves them to directory users.
type Validator struct {
	secret []byte
	users  repositories.UserRepository
}

// NewValidator constructs a Validator.
func NewValidator(secret string, users repositories.UserRepository) *Validator {
	return &Validator{secret: []byte(secret), users: users}
}

// ValidateToken verifies the JWT and returns the authenticated user id.
// The user must still exist in the directory.
func (v *Validator) ValidateToken(ctx context.Context, token string) (int, error) {
	if token == "" {
		return 0, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}

	if _, err := v.users.GetUser(ctx, claims.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return claims.UserID, nil
}

// SignToken issues an HS256 token for the user. Used by the session service
// at login and by tests.
func SignToken(secret string, userID int, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
