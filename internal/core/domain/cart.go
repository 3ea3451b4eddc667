package domain

// Cart is the server-side cart of the current user.
type Cart struct {
	ID         ID         `json:"id,omitempty"`
	Items      []CartItem `json:"items"`
	TotalPrice Amount     `json:"total_price,omitempty"`
}

// CartItem is one line of a cart.
type CartItem struct {
	ID          ID     `json:"id"`
	ServiceID   ID     `json:"service_id"`
	ServiceName string `json:"service_name"`
	Price       Amount `json:"price"`
}

// Contains reports whether the cart holds serviceID.
func (c *Cart) Contains(serviceID ID) bool {
	if c == nil {
		return false
	}
	for _, it := range c.Items {
		if it.ServiceID == serviceID {
			return true
		}
	}
	return false
}

// Empty reports whether the cart has no items.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}
