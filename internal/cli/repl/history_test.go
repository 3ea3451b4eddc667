package repl

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHistory_AddAndGet(t *testing.T) {
	h := NewHistory("", 0)
	if h.maxSize != DefaultMaxHistory {
		t.Errorf("maxSize = %d, want %d", h.maxSize, DefaultMaxHistory)
	}

	h.Add("cart show")
	h.Add("cart show")
	h.Add("orders list")

	if got := h.Entries(); !reflect.DeepEqual(got, []string{"cart show", "orders list"}) {
		t.Errorf("Entries() = %v", got)
	}
	if h.Get(0) != "orders list" || h.Get(1) != "cart show" {
		t.Errorf("Get(0), Get(1) = %q, %q", h.Get(0), h.Get(1))
	}
	if h.Get(-1) != "" || h.Get(5) != "" {
		t.Error("out-of-range Get should return empty")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("", 3)
	for _, c := range []string{"a", "b", "c", "d"} {
		h.Add(c)
	}
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistory(file, 10)
	h.Add("login --email a@example.com")
	h.Add("cart show")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("history file mode = %o, want 600", perm)
	}

	loaded := NewHistory(file, 2)
	loaded.Add("whoami")
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Entries(); !reflect.DeepEqual(got, []string{"cart show", "whoami"}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestHistory_LoadMissingAndMemoryOnly(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "absent"), 0)
	if err := h.Load(); err != nil {
		t.Errorf("Load() of missing file error = %v", err)
	}

	mem := NewHistory("", 0)
	mem.Add("x")
	if err := mem.Save(); err != nil || mem.Load() != nil {
		t.Error("memory-only history should ignore Save and Load")
	}
}
