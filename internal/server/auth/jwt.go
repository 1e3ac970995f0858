// Package auth issues and parses the short-lived session tokens that carry
// the caller's user identity between sign-in and every authenticated call.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every session token and required on parse.
const Issuer = "budgetkeeper"

var signingMethod = jwt.SigningMethodHS256

// Identity is the authenticated user behind a session token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// Claims carries the user id in the subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// GenerateToken signs a session token for id valid for ttl from now.
func GenerateToken(id Identity, secretKey []byte, ttl time.Duration) (string, error) {
	return issueAt(id, secretKey, time.Now(), ttl)
}

func issueAt(id Identity, secretKey []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(secretKey)
}

// ParseToken validates tokenString and returns its identity. Expired tokens
// yield common.ErrTokenExpired, anything else unusable common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, common.ErrTokenExpired
	case err != nil:
		return Identity{}, common.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.Email == "" {
		return Identity{}, common.ErrInvalidToken
	}
	return Identity{UserID: userID, Email: claims.Email}, nil
}
