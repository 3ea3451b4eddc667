package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/storefront-go/internal/cache"
	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/pkg/token"
)

var nowFunc = time.Now

// referenceSuffixLen is the random tail of a payment reference id.
const referenceSuffixLen = 8

// CartAPI is the cart backend.
type CartAPI interface {
	Get(ctx context.Context) (*domain.Cart, error)
	Add(ctx context.Context, serviceID string) error
	Remove(ctx context.Context, serviceID string) error
	Checkout(ctx context.Context) (*domain.CheckoutResult, error)
}

// OrderAPI is the order backend.
type OrderAPI interface {
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	Pay(ctx context.Context, id string, p domain.Payment) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// CatalogAPI is the public service catalog.
type CatalogAPI interface {
	Services(ctx context.Context, filter domain.ServiceFilter) (*domain.ServicePage, error)
	Service(ctx context.Context, id string) (*domain.Service, error)
}

// WorkflowConfig wires a Workflow.
type WorkflowConfig struct {
	Cart    CartAPI
	Orders  OrderAPI
	Catalog CatalogAPI
	Tokens  *TokenStore
	Cache   *cache.Cache

	// SessionQuery applies to cart and order reads.
	SessionQuery cache.Options
	// CatalogQuery applies to service reads.
	CatalogQuery cache.Options

	Logger logger.Logger
}

// Workflow sequences cart and order operations with the cache
// invalidations each one requires. Invalidation always follows a
// confirmed backend success.
type Workflow struct {
	cart    CartAPI
	orders  OrderAPI
	catalog CatalogAPI
	tokens  *TokenStore
	cache   *cache.Cache
	session cache.Options
	public  cache.Options
	logger  logger.Logger
}

// NewWorkflow creates a Workflow.
func NewWorkflow(cfg WorkflowConfig) *Workflow {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &Workflow{
		cart:    cfg.Cart,
		orders:  cfg.Orders,
		catalog: cfg.Catalog,
		tokens:  cfg.Tokens,
		cache:   cfg.Cache,
		session: cfg.SessionQuery,
		public:  cfg.CatalogQuery,
		logger:  cfg.Logger.With("component", "workflow"),
	}
}

// sessionKey returns the cache segment of the current session.
func (w *Workflow) sessionKey(ctx context.Context) (string, error) {
	tok := w.tokens.Get(ctx)
	if tok.Access == "" {
		return "", domain.ErrNotAuthenticated
	}
	return domain.SessionKey(tok.Access), nil
}

// ============================================================================
// Reads
// ============================================================================

// Cart returns the current cart.
func (w *Workflow) Cart(ctx context.Context) (*domain.Cart, error) {
	sess, err := w.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	c, err := cache.FetchAs(ctx, w.cache, cache.CartKeys.Detail(sess), func(ctx context.Context) (domain.Cart, error) {
		c, err := w.cart.Get(ctx)
		if err != nil {
			return domain.Cart{}, err
		}
		return *c, nil
	}, w.session)
	if err != nil {
		return nil, connection.Classify(err)
	}
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return &c, nil
}

// Orders returns the order history.
func (w *Workflow) Orders(ctx context.Context) ([]domain.Order, error) {
	sess, err := w.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	list, err := cache.FetchAs(ctx, w.cache, cache.OrderKeys.List(sess), w.orders.List, w.session)
	if err != nil {
		return nil, connection.Classify(err)
	}
	out := make([]domain.Order, len(list))
	for i, o := range list {
		out[i] = cloneOrder(o)
	}
	return out, nil
}

// Order returns one order.
func (w *Workflow) Order(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("order id is required")
	}
	sess, err := w.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	o, err := cache.FetchAs(ctx, w.cache, cache.OrderKeys.Detail(id, sess), func(ctx context.Context) (domain.Order, error) {
		o, err := w.orders.Get(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		return *o, nil
	}, w.session)
	if err != nil {
		return nil, connection.Classify(err)
	}
	o = cloneOrder(o)
	return &o, nil
}

// Services returns one catalog page. No session is needed.
func (w *Workflow) Services(ctx context.Context, filter domain.ServiceFilter) (*domain.ServicePage, error) {
	filter = filter.Normalized()
	page, err := cache.FetchAs(ctx, w.cache, cache.ServiceKeys.List(filter), func(ctx context.Context) (domain.ServicePage, error) {
		p, err := w.catalog.Services(ctx, filter)
		if err != nil {
			return domain.ServicePage{}, err
		}
		return *p, nil
	}, w.public)
	if err != nil {
		return nil, connection.Classify(err)
	}
	page.Items = append([]domain.Service(nil), page.Items...)
	return &page, nil
}

// Service returns one catalog entry.
func (w *Workflow) Service(ctx context.Context, id string) (*domain.Service, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("service id is required")
	}
	svc, err := cache.FetchAs(ctx, w.cache, cache.ServiceKeys.Detail(id), func(ctx context.Context) (domain.Service, error) {
		s, err := w.catalog.Service(ctx, id)
		if err != nil {
			return domain.Service{}, err
		}
		return *s, nil
	}, w.public)
	if err != nil {
		return nil, connection.Classify(err)
	}
	return &svc, nil
}

// ============================================================================
// Mutations
// ============================================================================

// AddToCart adds serviceID to the cart, then invalidates the cart and the
// catalog.
func (w *Workflow) AddToCart(ctx context.Context, serviceID string) error {
	if serviceID == "" {
		return domain.ErrInvalidArgument.WithDetails("service id is required")
	}
	if _, err := w.sessionKey(ctx); err != nil {
		return err
	}
	if err := w.cart.Add(ctx, serviceID); err != nil {
		return connection.Classify(err)
	}

	w.cache.Invalidate(cache.CartKeys.All())
	w.cache.Invalidate(cache.ServiceKeys.All())
	w.logger.Debug("added to cart", "service_id", serviceID)
	return nil
}

// RemoveFromCart drops serviceID from the cart. The next Cart call
// refetches.
func (w *Workflow) RemoveFromCart(ctx context.Context, serviceID string) error {
	if serviceID == "" {
		return domain.ErrInvalidArgument.WithDetails("service id is required")
	}
	if _, err := w.sessionKey(ctx); err != nil {
		return err
	}
	if err := w.cart.Remove(ctx, serviceID); err != nil {
		return connection.Classify(err)
	}

	w.cache.Invalidate(cache.CartKeys.All())
	w.logger.Debug("removed from cart", "service_id", serviceID)
	return nil
}

// Checkout turns the cart into an order. The cart entry is removed rather
// than marked stale and the order lists are invalidated.
func (w *Workflow) Checkout(ctx context.Context) (*domain.CheckoutResult, error) {
	before, err := w.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	res, err := w.cart.Checkout(ctx)
	if err != nil {
		return nil, connection.Classify(err)
	}

	w.cache.Remove(cache.CartKeys.Detail(before))
	// A refresh during the call moves the session to a new segment.
	if after, err := w.sessionKey(ctx); err == nil && after != before {
		w.cache.Remove(cache.CartKeys.Detail(after))
	}
	w.cache.Invalidate(cache.OrderKeys.Lists())

	w.logger.Info("checked out", "order_id", res.OrderID)
	return res, nil
}

// PayOrder pays order id with method. Every call sends a fresh reference
// id of the form <method>-<unix millis>-<random>.
func (w *Workflow) PayOrder(ctx context.Context, id string, method domain.PaymentMethod) (*domain.Payment, error) {
	method = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(method))))
	if id == "" || method == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("order id and payment method are required")
	}
	sess, err := w.sessionKey(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := NewPaymentReference(method, nowFunc())
	if err != nil {
		return nil, err
	}
	pay, err := w.orders.Pay(ctx, id, domain.Payment{Method: method, ReferenceID: ref})
	if err != nil {
		return nil, connection.Classify(err)
	}
	if pay.ReferenceID == "" {
		pay.ReferenceID = ref
	}

	w.cache.Invalidate(cache.OrderKeys.Detail(id, sess))
	w.cache.Invalidate(cache.OrderKeys.Lists())
	w.logger.Info("order paid", "order_id", id, "method", method, "reference_id", ref)
	return pay, nil
}

// CancelOrder cancels order id. Orders that are not pending or confirmed
// are rejected with ErrOrderNotCancellable without contacting the backend.
func (w *Workflow) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := w.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, domain.ErrOrderNotCancellable.WithDetails(fmt.Sprintf("order %s is %s", id, order.Status))
	}

	sess, err := w.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := w.orders.UpdateStatus(ctx, id, domain.OrderCancelled)
	if err != nil {
		return nil, connection.Classify(err)
	}

	w.cache.Invalidate(cache.OrderKeys.Detail(id, sess))
	w.cache.Invalidate(cache.OrderKeys.Lists())
	w.cache.Invalidate(cache.OrderKeys.All())
	w.logger.Info("order cancelled", "order_id", id)
	return updated, nil
}

// NewPaymentReference builds a payment idempotency token.
func NewPaymentReference(method domain.PaymentMethod, now time.Time) (string, error) {
	suffix, err := token.Suffix(referenceSuffixLen)
	if err != nil {
		return "", fmt.Errorf("payment reference: %w", err)
	}
	return fmt.Sprintf("%s-%d-%s", method, now.UnixMilli(), suffix), nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}
