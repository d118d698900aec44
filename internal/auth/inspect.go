package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of token claims the client can show the user.
// The backend verifies signatures; the client only reads.
type Claims struct {
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer    string     `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	IsJWT     bool       `json:"isJwt" yaml:"isJwt"`
}

// Expired reports whether the token carries an expiry that lies before now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Inspect decodes a token's claims without verifying its signature. Opaque
// (non-JWT) tokens are not an error; they come back with IsJWT false.
func Inspect(token string) (Claims, error) {
	if token == "" {
		return Claims{}, fmt.Errorf("no token stored")
	}

	var registered jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &registered); err != nil {
		return Claims{IsJWT: false}, nil
	}

	claims := Claims{
		Subject: registered.Subject,
		Issuer:  registered.Issuer,
		IsJWT:   true,
	}
	if registered.ExpiresAt != nil {
		exp := registered.ExpiresAt.Time
		claims.ExpiresAt = &exp
	}
	return claims, nil
}
