package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is the credential pair issued by the auth backend.
//
// Access and Refresh are both set or both empty. ExpiresAt is the access
// token's expiry in epoch seconds; 0 means unknown and is only meaningful
// when Access is set.
type Token struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresAt int64  `json:"-"`
}

// Validate checks the both-or-neither invariant.
func (t Token) Validate() error {
	if (t.Access == "") != (t.Refresh == "") {
		return ErrInvalidToken
	}
	return nil
}

// IsZero reports whether the token is empty.
func (t Token) IsZero() bool {
	return t.Access == "" && t.Refresh == ""
}

// Expired reports whether the access token is known to have expired at now.
// A token with unknown expiry is never considered expired.
func (t Token) Expired(now time.Time) bool {
	return t.Access != "" && t.ExpiresAt > 0 && now.Unix() >= t.ExpiresAt
}

// ExpiresIn returns the time left until expiry, or 0 if the expiry is
// unknown or already passed.
func (t Token) ExpiresIn(now time.Time) time.Duration {
	if t.Access == "" || t.ExpiresAt == 0 {
		return 0
	}
	d := time.Unix(t.ExpiresAt, 0).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// WithAccess returns a copy carrying a new access token and its expiry. The
// refresh token is preserved.
func (t Token) WithAccess(access string) Token {
	t.Access = access
	t.ExpiresAt = ExpiryFromJWT(access)
	return t
}

// ExpiryFromJWT reads the exp claim of a JWT without verifying its signature.
// Opaque tokens yield 0.
func ExpiryFromJWT(access string) int64 {
	if access == "" {
		return 0
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return 0
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
