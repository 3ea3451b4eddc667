package command

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

func TestLoginWhoamiLogout(t *testing.T) {
	h := newCLI(t, "")

	out := h.mustRun("login", "-e", "alice@example.com", "-p", "alice-pass")
	for _, want := range []string{"authenticated", "alice", "alice@example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("login output missing %q:\n%s", want, out)
		}
	}

	out = h.mustRun("-o", "json", "whoami")
	var p domain.UserProfile
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("whoami json: %v\n%s", err, out)
	}
	if p.Username != "alice" {
		t.Errorf("whoami username = %q", p.Username)
	}
	if got := h.srv.Calls("GET", "/auth/user"); got != 0 {
		t.Errorf("whoami fetched the profile %d times, want the seeded entry", got)
	}

	if out := h.mustRun("logout"); !strings.Contains(out, "Logged out.") {
		t.Errorf("logout output = %q", out)
	}
	if h.srv.Calls("POST", "/auth/logout") != 1 {
		t.Error("logout did not reach the backend")
	}

	_, err := h.run("whoami")
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("whoami after logout error = %v, want ErrNotAuthenticated", err)
	}
	if err.Error() != "not logged in" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestLogin_BackendMessageVerbatim(t *testing.T) {
	h := newCLI(t, "")
	_, err := h.run("login", "-e", "alice@example.com", "-p", "wrong")
	if err == nil || err.Error() != "Unable to log in with provided credentials." {
		t.Errorf("error = %v", err)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error should classify as validation: %v", err)
	}
}

func TestLogin_PromptsForPassword(t *testing.T) {
	h := newCLI(t, "alice-pass\n")
	h.mustRun("login", "-e", "alice@example.com")
	if !strings.Contains(h.stderr.String(), "Password: ") {
		t.Errorf("stderr = %q, want a password prompt", h.stderr.String())
	}
}

func TestLoginGoogle(t *testing.T) {
	h := newCLI(t, "")
	if _, err := h.run("login-google"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("missing code error = %v", err)
	}
	out := h.mustRun("-o", "yaml", "login-google", "google-test-code")
	if !strings.Contains(out, "username:") {
		t.Errorf("login-google output = %q", out)
	}
}

func TestRegisterAndResend(t *testing.T) {
	h := newCLI(t, "")

	_, err := h.run("register", "-u", "carol", "-e", "carol@example.com", "-p", "one", "--confirm", "two")
	if err == nil || err.Error() != "passwords do not match" {
		t.Errorf("mismatch error = %v", err)
	}
	if h.srv.Calls("POST", "/auth/registration") != 0 {
		t.Error("mismatched passwords reached the backend")
	}

	out := h.mustRun("register", "-u", "carol", "-e", "carol@example.com", "-p", "carol-pass")
	if !strings.Contains(out, "carol") {
		t.Errorf("register output = %q", out)
	}

	_, err = h.run("register", "-u", "alice2", "-e", "alice@example.com", "-p", "x")
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("duplicate error = %v", err)
	}

	out = h.mustRun("resend-email", "carol@example.com")
	if !strings.Contains(out, "carol@example.com") {
		t.Errorf("resend output = %q", out)
	}
	if got := h.srv.ResentEmails(); len(got) != 1 || got[0] != "carol@example.com" {
		t.Errorf("resent = %v", got)
	}
}

func TestDeactivate(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		h := newCLI(t, "n\n")
		h.login()
		if out := h.mustRun("deactivate"); !strings.Contains(out, "Aborted.") {
			t.Errorf("output = %q", out)
		}
		if h.srv.Calls("DELETE", "/users/deactivate/{username}") != 0 {
			t.Error("declined deactivation reached the backend")
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		h := newCLI(t, "yes\n")
		h.login()
		if out := h.mustRun("deactivate"); !strings.Contains(out, "alice deactivated") {
			t.Errorf("output = %q", out)
		}
		if _, err := h.run("login", "-e", "alice@example.com", "-p", "alice-pass"); err == nil {
			t.Error("deactivated account could still log in")
		}
	})

	t.Run("forced", func(t *testing.T) {
		h := newCLI(t, "")
		h.login()
		h.mustRun("deactivate", "--force")
		if h.srv.Calls("DELETE", "/users/deactivate/{username}") != 1 {
			t.Error("forced deactivation did not reach the backend")
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		h := newCLI(t, "")
		if _, err := h.run("deactivate", "--force"); !errors.Is(err, domain.ErrNotAuthenticated) {
			t.Errorf("error = %v", err)
		}
	})
}
