package domain

import "github.com/yndnr/storefront-go/pkg/token"

// SessionState is the lifecycle state of the client session.
type SessionState int32

const (
	SessionAnonymous SessionState = iota
	SessionAuthenticating
	SessionAuthenticated
	SessionDeauthenticating
)

func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticating:
		return "authenticating"
	case SessionAuthenticated:
		return "authenticated"
	case SessionDeauthenticating:
		return "deauthenticating"
	default:
		return "unknown"
	}
}

// Busy reports whether a login or logout flow is running.
func (s SessionState) Busy() bool {
	return s == SessionAuthenticating || s == SessionDeauthenticating
}

// SessionKey returns the cache-key segment identifying the session that owns
// access. It changes whenever the access token changes and never contains the
// token itself. An anonymous session has the empty key.
func SessionKey(access string) string {
	return token.Fingerprint(access)
}
