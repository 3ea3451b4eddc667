package domain

import (
	"strings"
	"time"
)

// OrderStatus is the server-owned lifecycle status of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// orderTransitions is the backend's state machine: pending -> confirmed ->
// paid, pending|confirmed -> cancelled, any non-terminal -> refunded.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled, OrderRefunded},
	OrderConfirmed: {OrderPaid, OrderCancelled, OrderRefunded},
	OrderPaid:      {OrderRefunded},
}

// Normalize lowercases the status; some backends report "Pending".
func (s OrderStatus) Normalize() OrderStatus {
	return OrderStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Cancellable reports whether the client offers cancellation for s.
func (s OrderStatus) Cancellable() bool {
	switch s.Normalize() {
	case OrderPending, OrderConfirmed:
		return true
	}
	return false
}

// Payable reports whether the client offers payment for s. Only confirmed
// orders can be paid.
func (s OrderStatus) Payable() bool {
	return s.Normalize() == OrderConfirmed
}

// Terminal reports whether no client-requested transition leaves s.
func (s OrderStatus) Terminal() bool {
	switch s.Normalize() {
	case OrderPaid, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// CanTransition reports whether the server accepts from -> to. The client uses
// it only to gate what it offers; the server stays authoritative.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from.Normalize()] {
		if next == to.Normalize() {
			return true
		}
	}
	return false
}

// Order is a placed order.
type Order struct {
	ID         ID          `json:"id"`
	User       ID          `json:"user,omitempty"`
	Status     OrderStatus `json:"status"`
	Items      []OrderItem `json:"items"`
	TotalPrice Amount      `json:"total_price"`
	OrderedAt  *time.Time  `json:"ordered_at,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ServiceID   ID     `json:"service_id"`
	ServiceName string `json:"service_name"`
	Price       Amount `json:"price"`
}

// CheckoutResult is the reply to POST /orders/checkout.
type CheckoutResult struct {
	OrderID ID     `json:"order_id"`
	Order   *Order `json:"order,omitempty"`
}

// PaymentMethod names how an order is paid.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
	PaymentBank   PaymentMethod = "bank"
)

// Payment is the body of POST /orders/{id}/pay and, with Status filled in,
// its reply.
type Payment struct {
	OrderID     ID            `json:"order_id,omitempty"`
	Method      PaymentMethod `json:"method"`
	ReferenceID string        `json:"reference_id"`
	Status      string        `json:"status,omitempty"`
}
