package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yndnr/storefront-go/internal/cache"
	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/internal/telemetry/metric"
)

// AuthAPI is the auth backend used by the coordinator.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.LoginResult, error)
	GoogleLogin(ctx context.Context, code string) (*domain.LoginResult, error)
	Logout(ctx context.Context, refresh string) error
	Profile(ctx context.Context) (*domain.UserProfile, error)
	Deactivate(ctx context.Context, username string) error
	ResendEmailConfirmation(ctx context.Context, email string) error
}

// SessionConfig wires a SessionCoordinator.
type SessionConfig struct {
	Auth    AuthAPI
	Tokens  *TokenStore
	Cache   *cache.Cache
	Profile cache.Options // fetch options for the profile query
	Metrics *metric.Registry
	Logger  logger.Logger
}

// SessionCoordinator runs login, logout and deactivation as single flows
// over the token store and the cache.
//
// Flows hold the state in Authenticating or Deauthenticating while they
// run; a second flow started meanwhile fails with ErrInvalidState.
type SessionCoordinator struct {
	auth    AuthAPI
	tokens  *TokenStore
	cache   *cache.Cache
	profile cache.Options
	metrics *metric.Registry
	logger  logger.Logger

	state atomic.Int32

	smu   sync.Mutex
	snext int
	subs  map[int]func(from, to domain.SessionState)

	stopTokens func()
}

// NewSessionCoordinator creates a coordinator in the Anonymous state. Call
// Restore to pick up a stored session.
func NewSessionCoordinator(cfg SessionConfig) *SessionCoordinator {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	c := &SessionCoordinator{
		auth:    cfg.Auth,
		tokens:  cfg.Tokens,
		cache:   cfg.Cache,
		profile: cfg.Profile,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "session"),
		subs:    make(map[int]func(from, to domain.SessionState)),
	}
	c.stopTokens = cfg.Tokens.Subscribe(c.onTokenChange)
	return c
}

// Close detaches the coordinator from the token store.
func (c *SessionCoordinator) Close() {
	c.stopTokens()
}

// State returns the current session state.
func (c *SessionCoordinator) State() domain.SessionState {
	return domain.SessionState(c.state.Load())
}

// Subscribe registers fn for state transitions and returns a function that
// removes it.
func (c *SessionCoordinator) Subscribe(fn func(from, to domain.SessionState)) func() {
	c.smu.Lock()
	defer c.smu.Unlock()
	id := c.snext
	c.snext++
	c.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.smu.Lock()
			delete(c.subs, id)
			c.smu.Unlock()
		})
	}
}

// Restore derives the state from the stored token. An expired access token
// still counts as signed in; the next 401 refreshes it.
func (c *SessionCoordinator) Restore(ctx context.Context) domain.SessionState {
	tok := c.tokens.Get(ctx)
	if tok.Access == "" {
		c.transition(domain.SessionAnonymous)
		return domain.SessionAnonymous
	}

	c.logger.Debug("session restored",
		"session", domain.SessionKey(tok.Access),
		"expires_in", tok.ExpiresIn(nowFunc()))
	c.transition(domain.SessionAuthenticated)
	return domain.SessionAuthenticated
}

// Login signs in with email and password.
func (c *SessionCoordinator) Login(ctx context.Context, creds domain.Credentials) (*domain.UserProfile, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("email and password are required")
	}
	return c.signIn(ctx, "password", func(ctx context.Context) (*domain.LoginResult, error) {
		return c.auth.Login(ctx, creds)
	})
}

// LoginWithOAuthCode signs in through the Google exchange.
func (c *SessionCoordinator) LoginWithOAuthCode(ctx context.Context, code string) (*domain.UserProfile, error) {
	if code == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("oauth code is required")
	}
	return c.signIn(ctx, "google", func(ctx context.Context) (*domain.LoginResult, error) {
		return c.auth.GoogleLogin(ctx, code)
	})
}

// Register creates an account. When the backend logs the new user in, the
// session is established as for Login; otherwise nil is returned and the
// state is unchanged (the account awaits email confirmation).
func (c *SessionCoordinator) Register(ctx context.Context, reg domain.Registration) (*domain.UserProfile, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return c.signIn(ctx, "registration", func(ctx context.Context) (*domain.LoginResult, error) {
		return c.auth.Register(ctx, reg)
	})
}

// signIn is the shared sign-in flow:
//  1. backend exchange
//  2. token stored
//  3. user and catalog groups invalidated, profile seeded
//  4. Authenticated
//
// A failure in 1 or 2 restores the previous state and leaves the token
// untouched.
func (c *SessionCoordinator) signIn(ctx context.Context, method string, exchange func(context.Context) (*domain.LoginResult, error)) (*domain.UserProfile, error) {
	prevState, ok := c.begin(domain.SessionAuthenticating)
	if !ok {
		return nil, domain.ErrInvalidState
	}

	res, err := exchange(ctx)
	if err != nil {
		c.transition(prevState)
		c.logger.Info("sign-in rejected", "method", method, "error", err)
		return nil, connection.Classify(err)
	}
	if res.Access == "" {
		// Accepted without a session (registration pending confirmation).
		c.transition(prevState)
		return nil, nil
	}

	prev := c.tokens.Get(ctx)
	if err := c.tokens.Set(ctx, res.Token()); err != nil {
		c.transition(prevState)
		return nil, err
	}

	if prev.Access != "" && prev.Access != res.Access {
		c.cache.RemoveSegment(domain.SessionKey(prev.Access))
	}
	for _, group := range append(cache.SessionGroups(), cache.ServiceKeys.All()) {
		c.cache.Invalidate(group)
	}
	if res.User != nil {
		c.cache.Set(cache.UserKeys.Profile(), *res.User)
	}

	c.transition(domain.SessionAuthenticated)
	c.logger.Info("signed in", "method", method, "session", domain.SessionKey(res.Access))

	if res.User != nil {
		p := *res.User
		return &p, nil
	}
	p, err := c.Profile(ctx)
	if err != nil {
		c.logger.Warn("profile unavailable after sign-in", "error", err)
		return nil, nil
	}
	return p, nil
}

// Logout ends the session. The backend call is best effort; the local
// token and cache are cleared regardless.
func (c *SessionCoordinator) Logout(ctx context.Context) error {
	prevState, ok := c.begin(domain.SessionDeauthenticating)
	if !ok {
		return domain.ErrInvalidState
	}

	if tok := c.tokens.Get(ctx); tok.Refresh != "" {
		if err := c.auth.Logout(ctx, tok.Refresh); err != nil {
			c.logger.Warn("backend logout failed, clearing local session", "error", err)
		}
	}

	err := c.teardown(ctx)
	c.logger.Info("signed out", "from", prevState.String())
	return err
}

// Deactivate disables the signed-in account and then tears the session
// down. Asking the user for confirmation is the caller's job.
func (c *SessionCoordinator) Deactivate(ctx context.Context) error {
	if !c.tokens.IsAuthenticated(ctx) {
		return domain.ErrNotAuthenticated
	}
	profile, err := c.Profile(ctx)
	if err != nil {
		return err
	}

	prevState, ok := c.begin(domain.SessionDeauthenticating)
	if !ok {
		return domain.ErrInvalidState
	}
	if err := c.auth.Deactivate(ctx, profile.Username); err != nil {
		c.transition(prevState)
		return connection.Classify(err)
	}

	c.logger.Info("account deactivated", "username", profile.Username)
	return c.teardown(ctx)
}

func (c *SessionCoordinator) teardown(ctx context.Context) error {
	err := c.tokens.Clear(ctx)
	c.cache.Reset()
	c.transition(domain.SessionAnonymous)
	return err
}

// Profile returns the signed-in user, cached for the profile stale time.
func (c *SessionCoordinator) Profile(ctx context.Context) (*domain.UserProfile, error) {
	if !c.tokens.IsAuthenticated(ctx) {
		return nil, domain.ErrNotAuthenticated
	}
	p, err := cache.FetchAs(ctx, c.cache, cache.UserKeys.Profile(), func(ctx context.Context) (domain.UserProfile, error) {
		p, err := c.auth.Profile(ctx)
		if err != nil {
			return domain.UserProfile{}, err
		}
		return *p, nil
	}, c.profile)
	if err != nil {
		return nil, connection.Classify(err)
	}
	return &p, nil
}

// ResendEmailConfirmation asks the backend to mail the verification link
// to email again.
func (c *SessionCoordinator) ResendEmailConfirmation(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrInvalidArgument.WithDetails("email is required")
	}
	if err := c.auth.ResendEmailConfirmation(ctx, email); err != nil {
		return connection.Classify(err)
	}
	return nil
}

// begin moves into a busy state unless another flow is running.
func (c *SessionCoordinator) begin(busy domain.SessionState) (domain.SessionState, bool) {
	for {
		cur := c.State()
		if cur.Busy() {
			return cur, false
		}
		if c.state.CompareAndSwap(int32(cur), int32(busy)) {
			c.changed(cur, busy)
			return cur, true
		}
	}
}

func (c *SessionCoordinator) transition(to domain.SessionState) {
	from := domain.SessionState(c.state.Swap(int32(to)))
	if from != to {
		c.changed(from, to)
	}
}

func (c *SessionCoordinator) changed(from, to domain.SessionState) {
	c.metrics.IncSessionTransition(to.String())

	c.smu.Lock()
	fns := make([]func(from, to domain.SessionState), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.smu.Unlock()

	for _, fn := range fns {
		fn(from, to)
	}
}

// onTokenChange reacts to token changes made outside a flow: a refresh
// that rotated the access token, or a failed refresh that cleared it.
func (c *SessionCoordinator) onTokenChange(prev, next domain.Token) {
	if c.State().Busy() {
		return
	}

	switch {
	case next.Access == "" && prev.Access != "":
		n := c.cache.Len()
		c.cache.Reset()
		c.transition(domain.SessionAnonymous)
		c.logger.Warn("session ended by failed token refresh", "dropped_entries", n)

	case prev.Access != "" && next.Access != prev.Access:
		n := c.cache.RemoveSegment(domain.SessionKey(prev.Access))
		c.logger.Debug("access token rotated",
			"session", domain.SessionKey(next.Access),
			"dropped_entries", n)
		if c.State() == domain.SessionAnonymous {
			c.transition(domain.SessionAuthenticated)
		}

	case prev.Access == "" && next.Access != "":
		c.transition(domain.SessionAuthenticated)
	}
}
