// Package auth issues and verifies the HS256 session tokens handed out at
// sign-in.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the account data carried inside a session token.
type Identity struct {
	UserID   string   `json:"id"`
	Roles    []string `json:"role"`
	UserName string   `json:"userName"`
	Email    string   `json:"email"`
}

// HasRole reports whether role is among the identity's roles.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Claims combines the registered claims with the account identity.
type Claims struct {
	jwt.RegisteredClaims
	Identity
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Identity: id,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired; anything else wrong with the
// token yields an error wrapping common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &claims.Identity, nil
}
