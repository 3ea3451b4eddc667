package domain

import (
	"encoding/json"
	"testing"
)

func TestOrderStatus_Gates(t *testing.T) {
	tests := []struct {
		status      OrderStatus
		cancellable bool
		payable     bool
		terminal    bool
	}{
		{OrderPending, true, false, false},
		{OrderConfirmed, true, true, false},
		{"Pending", true, false, false},
		{"Confirmed", true, true, false},
		{OrderPaid, false, false, true},
		{OrderCancelled, false, false, true},
		{OrderRefunded, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Cancellable(); got != tt.cancellable {
				t.Errorf("Cancellable() = %v, want %v", got, tt.cancellable)
			}
			if got := tt.status.Payable(); got != tt.payable {
				t.Errorf("Payable() = %v, want %v", got, tt.payable)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderPaid, false},
		{OrderConfirmed, OrderPaid, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderPaid, OrderRefunded, true},
		{OrderPaid, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderRefunded, OrderPaid, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestOrder_DecodeMixedIDs(t *testing.T) {
	raw := `{"id": 42, "user": 7, "status": "pending", "total_price": "19.99",
		"items": [{"service_id": "65f0c1", "service_name": "SEO audit", "price": 19.99}]}`

	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if o.ID != "42" || o.User != "7" {
		t.Errorf("ids = (%s, %s), want (42, 7)", o.ID, o.User)
	}
	if o.TotalPrice != "19.99" || o.Items[0].Price != "19.99" {
		t.Errorf("prices = (%s, %s), want 19.99", o.TotalPrice, o.Items[0].Price)
	}
	if o.Items[0].ServiceID != "65f0c1" {
		t.Errorf("service id = %s", o.Items[0].ServiceID)
	}
}

func TestID_RejectsObjects(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`{"a":1}`), &id); err == nil {
		t.Error("Unmarshal of an object into ID should fail")
	}
	if err := json.Unmarshal([]byte(`null`), &id); err != nil || id != "" {
		t.Errorf("null should decode to empty id, got %q, %v", id, err)
	}
}

func TestCart_Contains(t *testing.T) {
	var nilCart *Cart
	if nilCart.Contains("x") || !nilCart.Empty() {
		t.Error("nil cart should be empty")
	}

	c := &Cart{Items: []CartItem{{ServiceID: "s1"}}}
	if !c.Contains("s1") || c.Contains("s2") {
		t.Error("Contains() mismatch")
	}
}

func TestServiceFilter_Segments(t *testing.T) {
	a := ServiceFilter{Category: "seo"}.Segments()
	b := ServiceFilter{Category: "seo", Page: 1, Limit: DefaultPageSize}.Segments()

	if len(a) != len(b) {
		t.Fatalf("segment count mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("segment %d: %q != %q", i, a[i], b[i])
		}
	}
}

func TestRegistration_Validate(t *testing.T) {
	ok := Registration{Username: "u", Email: "e@x", Password1: "p", Password2: "p"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	bad := ok
	bad.Password2 = "q"
	if err := bad.Validate(); err == nil {
		t.Error("mismatched passwords should fail")
	}
}
