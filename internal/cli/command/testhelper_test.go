package command

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/storefront-go/internal/backendtest"
)

type cliHarness struct {
	t       *testing.T
	srv     *backendtest.Server
	rt      *Runtime
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	cfgPath string
}

func newCLI(t *testing.T, stdin string) *cliHarness {
	t.Helper()

	srv := backendtest.New(t)
	srv.AddUser("alice", "alice@example.com", "alice-pass")

	h := &cliHarness{
		t:       t,
		srv:     srv,
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		cfgPath: filepath.Join(t.TempDir(), "config.yaml"),
	}
	h.rt = &Runtime{Stdin: strings.NewReader(stdin), Stdout: h.stdout, Stderr: h.stderr}
	t.Cleanup(func() { _ = h.rt.Close() })
	return h
}

// run executes one command line against the fake backend and returns its
// stdout.
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	h.stdout.Reset()
	full := append([]string{
		Name,
		"--config", h.cfgPath,
		"--core-url", h.srv.URL,
		"--catalog-url", h.srv.URL,
		"--storage", "memory",
	}, args...)
	err := Friendly(NewApp(h.rt).RunContext(context.Background(), full))
	return h.stdout.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%s: error = %v\nstderr: %s", strings.Join(args, " "), err, h.stderr.String())
	}
	return out
}

func (h *cliHarness) login() {
	h.t.Helper()
	h.mustRun("login", "--email", "alice@example.com", "--password", "alice-pass")
}
