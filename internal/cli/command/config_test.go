package command

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/yndnr/storefront-go/internal/cli/config"
)

func TestConfigPathAndShow(t *testing.T) {
	h := newCLI(t, "")

	if out := h.mustRun("config", "path"); strings.TrimSpace(out) != h.cfgPath {
		t.Errorf("config path = %q, want %q", out, h.cfgPath)
	}

	out := h.mustRun("config", "show")
	if !strings.Contains(out, "core.base_url") || !strings.Contains(out, h.srv.URL) {
		t.Errorf("config show should reflect the --core-url flag:\n%s", out)
	}
	if strings.Contains(out, "passphrase") {
		t.Error("config show printed the passphrase key")
	}

	if out := h.mustRun("config", "get", "storage.engine"); strings.TrimSpace(out) != "memory" {
		t.Errorf("config get = %q", out)
	}
	if _, err := h.run("config", "get", "nope"); !errors.Is(err, config.ErrUnknownKey) {
		t.Errorf("unknown key error = %v", err)
	}
}

func TestConfigSet(t *testing.T) {
	h := newCLI(t, "")

	if out := h.mustRun("config", "set", "cache.stale_time", "2m"); !strings.Contains(out, "cache.stale_time = 2m") {
		t.Errorf("config set = %q", out)
	}
	data, err := os.ReadFile(h.cfgPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "stale_time: 2m0s") {
		t.Errorf("config file:\n%s", data)
	}
	if out := h.mustRun("config", "get", "cache.stale_time"); strings.TrimSpace(out) != "2m0s" {
		t.Errorf("running config not updated: %q", out)
	}

	if _, err := h.run("config", "set", "output", "xml"); err == nil {
		t.Error("invalid value accepted")
	}
	if _, err := h.run("config", "set", "output"); err == nil {
		t.Error("missing value accepted")
	}

	out := h.mustRun("config", "keys")
	if !strings.Contains(out, "shell.prompt") {
		t.Errorf("config keys = %q", out)
	}
}
