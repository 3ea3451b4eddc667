package backend

import (
	"context"
	"encoding/json"

	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/domain"
)

// Cart is the cart endpoint group.
type Cart struct {
	client *connection.Client
}

// NewCart binds the cart endpoints to client.
func NewCart(client *connection.Client) *Cart {
	return &Cart{client: client}
}

// Get returns the current cart.
func (c *Cart) Get(ctx context.Context) (*domain.Cart, error) {
	resp, err := c.client.Get(ctx, PathCart)
	if err != nil {
		return nil, err
	}
	var out domain.Cart
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add puts serviceID in the cart.
func (c *Cart) Add(ctx context.Context, serviceID string) error {
	_, err := c.client.Post(ctx, PathCart, map[string]string{"service_id": serviceID})
	return err
}

// Remove takes serviceID out of the cart.
func (c *Cart) Remove(ctx context.Context, serviceID string) error {
	_, err := c.client.Delete(ctx, itemPath(PathCart, serviceID))
	return err
}

// Checkout turns the cart into an order. The cart is implicit server-side
// so no body is sent.
func (c *Cart) Checkout(ctx context.Context) (*domain.CheckoutResult, error) {
	resp, err := c.client.Post(ctx, PathCheckout, nil)
	if err != nil {
		return nil, err
	}
	return decodeCheckout(resp)
}

// decodeCheckout accepts {order_id, order}, {order: {...}} or a bare order.
func decodeCheckout(resp *connection.Response) (*domain.CheckoutResult, error) {
	var out domain.CheckoutResult
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" && out.Order != nil {
		out.OrderID = out.Order.ID
	}
	if out.OrderID == "" {
		var bare domain.Order
		if err := json.Unmarshal(resp.Body, &bare); err == nil && bare.ID != "" {
			out.OrderID = bare.ID
			out.Order = &bare
		}
	}
	return &out, nil
}

// Orders is the order endpoint group.
type Orders struct {
	client *connection.Client
}

// NewOrders binds the order endpoints to client.
func NewOrders(client *connection.Client) *Orders {
	return &Orders{client: client}
}

// List returns the user's orders.
func (o *Orders) List(ctx context.Context) ([]domain.Order, error) {
	resp, err := o.client.Get(ctx, PathOrders)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one order.
func (o *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	resp, err := o.client.Get(ctx, itemPath(PathOrders, id))
	if err != nil {
		return nil, err
	}
	var out domain.Order
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pay submits a payment for order id.
func (o *Orders) Pay(ctx context.Context, id string, p domain.Payment) (*domain.Payment, error) {
	body := struct {
		Method      domain.PaymentMethod `json:"method"`
		ReferenceID string               `json:"reference_id"`
	}{p.Method, p.ReferenceID}

	resp, err := o.client.Post(ctx, itemPath(PathOrders, id)+"/pay", body)
	if err != nil {
		return nil, err
	}

	out := p
	out.OrderID = domain.ID(id)
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus requests a status change. The server decides whether the
// transition is allowed.
func (o *Orders) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	resp, err := o.client.Patch(ctx, itemPath(PathOrders, id)+"/update_status", map[string]domain.OrderStatus{"status": status})
	if err != nil {
		return nil, err
	}
	var out domain.Order
	if err := connection.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
