package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 100)
	m.Set("key2", 200)

	if val, ok := m.Get("key1"); !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}

	m.Delete("key1")
	if m.Has("key1") {
		t.Error("key1 should not exist after deletion")
	}
	m.Delete("missing")

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", m.Count())
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[string, int]()

	val, existed := m.GetOrSet("k", 1)
	if existed || val != 1 {
		t.Errorf("first GetOrSet = (%d, %v), want (1, false)", val, existed)
	}

	val, existed = m.GetOrSet("k", 2)
	if !existed || val != 1 {
		t.Errorf("second GetOrSet = (%d, %v), want (1, true)", val, existed)
	}
}

func TestGetOrCreate(t *testing.T) {
	m := New[string, *int]()
	calls := 0
	create := func() *int {
		calls++
		v := 7
		return &v
	}

	first, existed := m.GetOrCreate("k", create)
	if existed {
		t.Error("first GetOrCreate should create")
	}
	second, existed := m.GetOrCreate("k", create)
	if !existed || first != second {
		t.Error("second GetOrCreate should return the stored pointer")
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 5)

	val, ok := m.Pop("k")
	if !ok || val != 5 {
		t.Errorf("Pop = (%d, %v), want (5, true)", val, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Error("second Pop should report absence")
	}
}

func TestCompareAndDelete(t *testing.T) {
	m := New[string, *int]()
	a, b := 1, 2
	m.Set("k", &a)

	if m.CompareAndDelete("k", func(v *int) bool { return v == &b }) {
		t.Error("CompareAndDelete should not remove a different value")
	}
	if !m.CompareAndDelete("k", func(v *int) bool { return v == &a }) {
		t.Error("CompareAndDelete should remove the matching value")
	}
	if m.CompareAndDelete("k", func(*int) bool { return true }) {
		t.Error("CompareAndDelete on a missing key should return false")
	}
}

func TestStructKey(t *testing.T) {
	type key struct {
		group string
		id    int
	}
	m := New[key, string]()
	m.Set(key{"orders", 1}, "one")

	if v, ok := m.Get(key{"orders", 1}); !ok || v != "one" {
		t.Errorf("Get = (%q, %v), want (one, true)", v, ok)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k-%d-%d", n, j)
				m.Set(key, j)
				m.Get(key)
				if j%2 == 0 {
					m.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != 50*50 {
		t.Errorf("Count() = %d, want %d", m.Count(), 50*50)
	}
}
