// Package auth implements password hashing and access token
// issue/verification for the REST surface.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Issuer is the issuer claim stamped into every access token.
	Issuer = "plume"
	// KeyID is the key id header of the signing key.
	KeyID = "v1"
)

// ClaimsMessage are the claims carried by an access token. The subject
// is the user id.
type ClaimsMessage struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateAccessToken issues an HS256 token for the user, valid for ttl.
func GenerateAccessToken(userID int32, username string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.Itoa(int(userID)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	token.Header["kid"] = KeyID
	return token.SignedString([]byte(secret))
}

// VerifyAccessToken parses and validates a token, returning the user id
// it was issued for.
func VerifyAccessToken(tokenString, secret string) (int32, *ClaimsMessage, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, nil, fmt.Errorf("invalid access token: %w", err)
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return int32(userID), claims, nil
}
