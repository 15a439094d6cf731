package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the client can read from its own credential. Nothing here is
// verified; the server remains the only authority.
type Claims struct {
	Subject   string    `json:"subject" yaml:"subject"`
	Role      string    `json:"role,omitempty" yaml:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool      `json:"expired" yaml:"expired"`
}

func Inspect(credential string, now time.Time) (*Claims, error) {
	credential, ok := Normalize(credential)
	if !ok {
		return nil, fmt.Errorf("credential is empty")
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, mapClaims); err != nil {
		return nil, fmt.Errorf("credential is not a JWT: %w", err)
	}

	subject, err := mapClaims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("reading subject: %w", err)
	}

	claims := &Claims{Subject: subject}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading expiry: %w", err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time.UTC()
		claims.Expired = !now.Before(exp.Time)
	}

	return claims, nil
}
