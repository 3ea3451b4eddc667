package cmap

import (
	"sort"
	"strings"
	"testing"
)

func TestRangeEarlyStop(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 10; i++ {
		m.Set(string(rune('a'+i)), i)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return visited < 3
	})

	if visited != 3 {
		t.Errorf("visited %d items, want 3", visited)
	}
}

func TestKeysAndValues(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	keys := m.Keys()
	sort.Strings(keys)
	if strings.Join(keys, ",") != "a,b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}

	sum := 0
	for _, v := range m.Values() {
		sum += v
	}
	if sum != 3 {
		t.Errorf("sum of Values() = %d, want 3", sum)
	}
}

func TestDeleteFunc(t *testing.T) {
	m := New[string, int]()
	m.Set("cart/1", 1)
	m.Set("cart/2", 2)
	m.Set("orders/1", 3)

	removed := m.DeleteFunc(func(k string, _ int) bool {
		return strings.HasPrefix(k, "cart/")
	})

	if removed != 2 {
		t.Errorf("DeleteFunc removed %d, want 2", removed)
	}
	if !m.Has("orders/1") {
		t.Error("orders/1 should survive")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}
