package cache

import "github.com/yndnr/storefront-go/internal/core/domain"

// Key factories for every cached resource. Per-user keys take the session
// segment as an argument so callers cannot forget it.
var (
	UserKeys    userKeys
	CartKeys    cartKeys
	ServiceKeys serviceKeys
	OrderKeys   orderKeys
)

type userKeys struct{}

func (userKeys) All() Key { return Key{"users"} }
func (userKeys) Profile() Key { return Key{"users", "detail", "profile"} }

type cartKeys struct{}

func (cartKeys) All() Key { return Key{"cart"} }
func (cartKeys) Detail(session string) Key { return Key{"cart", "detail", session} }

type serviceKeys struct{}

func (serviceKeys) All() Key { return Key{"services"} }
func (serviceKeys) Lists() Key { return Key{"services", "list"} }
func (serviceKeys) Details() Key { return Key{"services", "detail"} }

// List is keyed by the normalized filter; catalog pages are public.
func (serviceKeys) List(f domain.ServiceFilter) Key {
	return Key{"services", "list"}.With(f.Segments()...)
}

func (serviceKeys) Detail(id string) Key { return Key{"services", "detail", id} }

type orderKeys struct{}

func (orderKeys) All() Key { return Key{"orders"} }
func (orderKeys) Lists() Key { return Key{"orders", "list"} }
func (orderKeys) List(session string) Key { return Key{"orders", "list", session} }
func (orderKeys) Details() Key { return Key{"orders", "detail"} }
func (orderKeys) Detail(id, session string) Key {
	return Key{"orders", "detail", id, session}
}

// SessionGroups are the prefixes holding per-user data.
func SessionGroups() []Key {
	return []Key{UserKeys.All(), CartKeys.All(), OrderKeys.All()}
}
