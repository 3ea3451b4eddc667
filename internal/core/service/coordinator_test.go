package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yndnr/storefront-go/internal/backendtest"
	"github.com/yndnr/storefront-go/internal/cache"
	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/storage"
)

func TestLoginLogout_LeavesNoSessionState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		t.Run(fmt.Sprintf("cycle %d", i), func(t *testing.T) {
			p := h.login(t, "alice@example.com", "alice-pass")
			if p == nil || p.Username != "alice" {
				t.Fatalf("Login() profile = %+v", p)
			}
			if h.session.State() != domain.SessionAuthenticated {
				t.Fatalf("state = %s, want authenticated", h.session.State())
			}

			if _, err := h.workflow.Cart(ctx); err != nil {
				t.Fatal(err)
			}
			if _, err := h.workflow.Orders(ctx); err != nil {
				t.Fatal(err)
			}
			if len(h.sessionKeysCached()) == 0 {
				t.Fatal("expected session-scoped entries before logout")
			}

			if err := h.session.Logout(ctx); err != nil {
				t.Fatalf("Logout() error = %v", err)
			}

			if tok := h.tokens.Get(ctx); !tok.IsZero() {
				t.Errorf("token after logout = %+v", tok)
			}
			if _, err := h.kv.Get(ctx, []byte(KeyJWT)); !errors.Is(err, storage.ErrKeyNotFound) {
				t.Errorf("durable token after logout: err = %v", err)
			}
			if keys := h.sessionKeysCached(); len(keys) != 0 {
				t.Errorf("session entries after logout = %v", keys)
			}
			if h.session.State() != domain.SessionAnonymous {
				t.Errorf("state = %s, want anonymous", h.session.State())
			}
		})
	}
}

func TestLogout_BackendFailureStillClearsLocally(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice@example.com", "alice-pass")
	h.srv.FailNext(http.MethodPost, "/auth/logout", http.StatusBadGateway, 1)

	if err := h.session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if h.tokens.IsAuthenticated(context.Background()) {
		t.Error("token should be cleared")
	}
}

func TestLogin_FailureLeavesAnonymous(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var transitions []string
	h.session.Subscribe(func(from, to domain.SessionState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_, err := h.session.Login(ctx, domain.Credentials{Email: "alice@example.com", Password: "nope"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Login() error = %v, want ErrValidation", err)
	}
	var de *domain.DomainError
	if !errors.As(err, &de) || de.Details != "Unable to log in with provided credentials." {
		t.Errorf("message not surfaced verbatim: %v", err)
	}
	if h.session.State() != domain.SessionAnonymous {
		t.Errorf("state = %s, want anonymous", h.session.State())
	}
	if !h.tokens.Get(ctx).IsZero() {
		t.Error("failed login should not set a token")
	}

	want := "[anonymous->authenticating authenticating->anonymous]"
	if fmt.Sprint(transitions) != want {
		t.Errorf("transitions = %v, want %s", transitions, want)
	}
}

func TestLogin_RequiresCredentials(t *testing.T) {
	h := newHarness(t)
	_, err := h.session.Login(context.Background(), domain.Credentials{Email: "alice@example.com"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
	if n := len(h.srv.Hits()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestLogin_RejectedWhileBusy(t *testing.T) {
	h := newHarness(t)
	h.session.state.Store(int32(domain.SessionDeauthenticating))

	_, err := h.session.Login(context.Background(), domain.Credentials{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

func TestLogin_SeedsProfileAndInvalidatesGroups(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	page, err := h.workflow.Services(ctx, domain.ServiceFilter{})
	if err != nil || len(page.Items) == 0 {
		t.Fatalf("Services() = %+v, %v", page, err)
	}

	h.login(t, "alice@example.com", "alice-pass")

	if _, ok := cache.ReadAs[domain.UserProfile](h.cache, cache.UserKeys.Profile()); !ok {
		t.Error("profile should be seeded from the login response")
	}
	if _, err := h.session.Profile(ctx); err != nil {
		t.Fatal(err)
	}
	if n := h.calls(http.MethodGet, "/auth/user"); n != 0 {
		t.Errorf("profile requests = %d, want 0", n)
	}

	before := h.calls(http.MethodGet, "/services")
	if _, err := h.workflow.Services(ctx, domain.ServiceFilter{}); err != nil {
		t.Fatal(err)
	}
	if h.calls(http.MethodGet, "/services") != before+1 {
		t.Error("catalog should be refetched after login")
	}
}

func TestLoginWithOAuthCodeAndRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.session.LoginWithOAuthCode(ctx, backendtest.GoogleCode)
	if err != nil || p.Username != "google.user" {
		t.Fatalf("LoginWithOAuthCode() = %+v, %v", p, err)
	}
	if err := h.session.Logout(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := h.session.LoginWithOAuthCode(ctx, "bad"); err == nil {
		t.Error("bad code should fail")
	}

	_, err = h.session.Register(ctx, domain.Registration{Username: "c", Email: "c@example.com", Password1: "x", Password2: "y"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("mismatched passwords error = %v", err)
	}

	p, err = h.session.Register(ctx, domain.Registration{
		Username: "carol", Email: "carol@example.com", Password1: "pw-123456", Password2: "pw-123456",
	})
	if err != nil || p == nil || p.Username != "carol" {
		t.Fatalf("Register() = %+v, %v", p, err)
	}
	if h.session.State() != domain.SessionAuthenticated {
		t.Errorf("state = %s", h.session.State())
	}

	if err := h.session.ResendEmailConfirmation(ctx, "carol@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := h.session.ResendEmailConfirmation(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty email error = %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.session.Deactivate(ctx); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("anonymous Deactivate() error = %v", err)
	}

	h.login(t, "alice@example.com", "alice-pass")
	if err := h.session.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if h.session.State() != domain.SessionAnonymous || h.tokens.IsAuthenticated(ctx) {
		t.Error("deactivation should end the session")
	}
	if h.cache.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", h.cache.Len())
	}

	_, err := h.session.Login(ctx, domain.Credentials{Email: "alice@example.com", Password: "alice-pass"})
	if err == nil {
		t.Error("deactivated account should not log in")
	}
}

func TestFailedRefreshEndsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t, "alice@example.com", "alice-pass")
	if _, err := h.workflow.Cart(ctx); err != nil {
		t.Fatal(err)
	}

	h.srv.ExpireAccess()
	h.srv.RevokeRefresh()

	_, err := h.workflow.Orders(ctx)
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("Orders() error = %v, want ErrAuth", err)
	}
	if h.tokens.IsAuthenticated(ctx) {
		t.Error("failed refresh should clear the token")
	}
	if h.session.State() != domain.SessionAnonymous {
		t.Errorf("state = %s, want anonymous", h.session.State())
	}
	if h.cache.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", h.cache.Len())
	}
}

func TestLateRefreshLeavesNewerSessionAlone(t *testing.T) {
	for _, switchUser := range []bool{false, true} {
		name := "logout"
		if switchUser {
			name = "switch user"
		}
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.login(t, "alice@example.com", "alice-pass")
			h.srv.ExpireAccess()

			entered, release := h.srv.HoldRefresh()
			t.Cleanup(release)

			done := make(chan error, 1)
			go func() {
				_, err := h.workflow.Orders(ctx)
				done <- err
			}()
			<-entered

			if err := h.session.Logout(ctx); err != nil {
				t.Fatalf("Logout() error = %v", err)
			}
			var want domain.Token
			if switchUser {
				h.login(t, "bob@example.com", "bob-pass")
				want = h.tokens.Get(ctx)
			}

			release()
			if err := <-done; err == nil {
				t.Error("Orders() issued for the old session should fail")
			}

			if got := h.tokens.Get(ctx); got != want {
				t.Errorf("token = %+v, want %+v", got, want)
			}
			if !switchUser {
				if h.session.State() != domain.SessionAnonymous {
					t.Errorf("state = %s, want anonymous", h.session.State())
				}
				return
			}
			if h.session.State() != domain.SessionAuthenticated {
				t.Errorf("state = %s, want authenticated", h.session.State())
			}
			p, err := h.session.Profile(ctx)
			if err != nil {
				t.Fatalf("Profile() error = %v", err)
			}
			if p.Username != "bob" {
				t.Errorf("profile = %s, want bob", p.Username)
			}
		})
	}
}

func TestRefreshDropsOldSessionEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t, "alice@example.com", "alice-pass")

	oldSession := h.sessionKey(t)
	if _, err := h.workflow.Cart(ctx); err != nil {
		t.Fatal(err)
	}

	h.srv.ExpireAccess()
	if _, err := h.workflow.Orders(ctx); err != nil {
		t.Fatalf("Orders() after expiry error = %v", err)
	}
	if h.srv.RefreshCalls() != 1 {
		t.Errorf("refresh calls = %d, want 1", h.srv.RefreshCalls())
	}

	if h.sessionKey(t) == oldSession {
		t.Fatal("session key should change with the access token")
	}
	if _, ok := h.cache.Read(cache.CartKeys.Detail(oldSession)); ok {
		t.Error("cart of the old session should be dropped")
	}
	if h.session.State() != domain.SessionAuthenticated {
		t.Errorf("state = %s", h.session.State())
	}
}

func TestRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if got := h.session.Restore(ctx); got != domain.SessionAnonymous {
		t.Errorf("Restore() with no token = %s", got)
	}

	h.login(t, "alice@example.com", "alice-pass")

	tokens, err := NewTokenStore(ctx, TokenStoreConfig{Engine: h.kv})
	if err != nil {
		t.Fatal(err)
	}
	restored := NewSessionCoordinator(SessionConfig{Auth: h.session.auth, Tokens: tokens, Cache: cache.New()})
	defer restored.Close()
	if got := restored.Restore(ctx); got != domain.SessionAuthenticated {
		t.Errorf("Restore() with stored token = %s", got)
	}
}

func TestSessionTransitionMetrics(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice@example.com", "alice-pass")

	samples, err := h.metrics.Samples("storefront_session_transitions_total")
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]float64{}
	for _, s := range samples {
		got[s.Labels] = s.Value
	}
	if got["to=authenticating"] != 1 || got["to=authenticated"] != 1 {
		t.Errorf("transition samples = %v", got)
	}
}
