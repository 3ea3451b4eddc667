package domain

import "time"

// UserProfile is the authenticated user as returned by GET /auth/user.
type UserProfile struct {
	ID            ID         `json:"pk"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	IsActive      bool       `json:"is_active"`
	IsStaff       bool       `json:"is_staff"`
	IsSuperuser   bool       `json:"is_superuser"`
	DateJoined    *time.Time `json:"date_joined,omitempty"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// Credentials are the local login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up form.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// Validate rejects forms the backend would reject without a round trip.
func (r Registration) Validate() error {
	switch {
	case r.Username == "" || r.Email == "":
		return ErrInvalidArgument.WithDetails("username and email are required")
	case r.Password1 == "":
		return ErrInvalidArgument.WithDetails("password is required")
	case r.Password1 != r.Password2:
		return ErrInvalidArgument.WithDetails("passwords do not match")
	}
	return nil
}

// LoginResult is the auth backend's reply to login, registration and the
// OAuth code exchange.
type LoginResult struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *UserProfile `json:"user,omitempty"`
}

// Token returns the credential pair carried by the result.
func (r LoginResult) Token() Token {
	return Token{Access: r.Access, Refresh: r.Refresh, ExpiresAt: ExpiryFromJWT(r.Access)}
}
