package cache

import (
	"testing"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

func TestKey_HasPrefix(t *testing.T) {
	k := Key{"orders", "detail", "42", "s1"}

	tests := []struct {
		prefix Key
		want   bool
	}{
		{Key{}, true},
		{Key{"orders"}, true},
		{Key{"orders", "detail"}, true},
		{Key{"orders", "list"}, false},
		{Key{"order"}, false},
		{Key{"orders", "detail", "42", "s1", "x"}, false},
	}
	for _, tt := range tests {
		if got := k.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%v) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestKey_WithDoesNotAlias(t *testing.T) {
	base := make(Key, 1, 4)
	base[0] = "services"
	a := base.With("a")
	b := base.With("b")
	if a[1] != "a" || b[1] != "b" {
		t.Errorf("With aliased the backing array: a=%v b=%v", a, b)
	}
}

func TestKey_IDIsUnambiguous(t *testing.T) {
	if (Key{"a/b"}).id() == (Key{"a", "b"}).id() {
		t.Error("segment boundaries must be preserved in the map key")
	}
	if (Key{"a", "b"}).String() != "a/b" {
		t.Errorf("String() = %q", Key{"a", "b"}.String())
	}
}

func TestKeyFactories(t *testing.T) {
	session := domain.SessionKey("A1")

	if !CartKeys.Detail(session).HasPrefix(CartKeys.All()) {
		t.Error("cart detail should sit under the cart group")
	}
	if !CartKeys.Detail(session).Contains(session) {
		t.Error("cart detail must carry the session segment")
	}
	if CartKeys.Detail(session).Contains("A1") {
		t.Error("raw access token must never appear in a key")
	}
	if CartKeys.Detail(session).String() == CartKeys.Detail(domain.SessionKey("B1")).String() {
		t.Error("different sessions must produce different cart keys")
	}

	if !OrderKeys.List(session).HasPrefix(OrderKeys.Lists()) || !OrderKeys.Lists().HasPrefix(OrderKeys.All()) {
		t.Error("order list keys should nest under orders/list")
	}
	if !OrderKeys.Detail("7", session).HasPrefix(OrderKeys.Details()) {
		t.Error("order detail keys should nest under orders/detail")
	}
	if !UserKeys.Profile().HasPrefix(UserKeys.All()) {
		t.Error("profile key should nest under users")
	}

	a := ServiceKeys.List(domain.ServiceFilter{Category: "design"})
	b := ServiceKeys.List(domain.ServiceFilter{Category: "design", Page: 1, Limit: domain.DefaultPageSize})
	if a.String() != b.String() {
		t.Errorf("equivalent filters gave different keys: %v vs %v", a, b)
	}
	if !a.HasPrefix(ServiceKeys.All()) {
		t.Error("service list key should nest under services")
	}

	if len(SessionGroups()) != 3 {
		t.Errorf("SessionGroups() = %v", SessionGroups())
	}
}
