package backend

import (
	"context"
	"net/url"

	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/domain"
)

// Auth is the authentication backend.
type Auth struct {
	client *connection.Client
}

// NewAuth binds the auth endpoints to client.
func NewAuth(client *connection.Client) *Auth {
	return &Auth{client: client}
}

// Login exchanges credentials for a token pair.
func (a *Auth) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	return a.loginLike(ctx, PathLogin, creds)
}

// Register creates an account. Backends that log the user in straight away
// return a token pair; others return only a confirmation message.
func (a *Auth) Register(ctx context.Context, reg domain.Registration) (*domain.LoginResult, error) {
	return a.loginLike(ctx, PathRegistration, reg)
}

// GoogleLogin exchanges a Google OAuth access token or code.
func (a *Auth) GoogleLogin(ctx context.Context, code string) (*domain.LoginResult, error) {
	return a.loginLike(ctx, PathGoogleLogin, map[string]string{"access_token": code})
}

func (a *Auth) loginLike(ctx context.Context, path string, body any) (*domain.LoginResult, error) {
	resp, err := a.client.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	var out domain.LoginResult
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token server-side.
func (a *Auth) Logout(ctx context.Context, refresh string) error {
	_, err := a.client.Post(ctx, PathLogout, map[string]string{"refresh": refresh})
	return err
}

// Profile returns the current user.
func (a *Auth) Profile(ctx context.Context) (*domain.UserProfile, error) {
	resp, err := a.client.Get(ctx, PathUser)
	if err != nil {
		return nil, err
	}
	var out domain.UserProfile
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deactivate disables the account of username.
func (a *Auth) Deactivate(ctx context.Context, username string) error {
	_, err := a.client.Delete(ctx, PathDeactivate+url.PathEscape(username))
	return err
}

// ResendEmailConfirmation asks the backend to send the verification mail
// again.
func (a *Auth) ResendEmailConfirmation(ctx context.Context, email string) error {
	_, err := a.client.Post(ctx, PathResendEmail, map[string]string{"email": email})
	return err
}
