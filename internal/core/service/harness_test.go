package service

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/storefront-go/internal/backend"
	"github.com/yndnr/storefront-go/internal/backendtest"
	"github.com/yndnr/storefront-go/internal/cache"
	"github.com/yndnr/storefront-go/internal/connection"
	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/storage"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/internal/telemetry/metric"
)

type harness struct {
	srv      *backendtest.Server
	kv       *storage.MemoryEngine
	tokens   *TokenStore
	cache    *cache.Cache
	metrics  *metric.Registry
	session  *SessionCoordinator
	workflow *Workflow
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	srv := backendtest.New(t)
	srv.AddUser("alice", "alice@example.com", "alice-pass")
	srv.AddUser("bob", "bob@example.com", "bob-pass")

	kv := storage.NewMemoryEngine()
	tokens, err := NewTokenStore(ctx, TokenStoreConfig{Engine: kv, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}

	reg := metric.NewRegistry()
	core, err := connection.New(connection.Config{
		Name: "core", BaseURL: srv.URL, Tokens: tokens, Metrics: reg, Logger: logger.Discard(),
	})
	if err != nil {
		t.Fatal(err)
	}
	public, err := connection.New(connection.Config{
		Name: "catalog", BaseURL: srv.URL, Metrics: reg, Logger: logger.Discard(),
	})
	if err != nil {
		t.Fatal(err)
	}

	c := cache.New(cache.WithMetrics(reg), cache.WithLogger(logger.Discard()))
	query := cache.Options{StaleTime: 5 * time.Minute, Retry: 1, ShouldRetry: connection.Retryable}

	session := NewSessionCoordinator(SessionConfig{
		Auth:    backend.NewAuth(core),
		Tokens:  tokens,
		Cache:   c,
		Profile: query,
		Metrics: reg,
		Logger:  logger.Discard(),
	})
	t.Cleanup(session.Close)

	return &harness{
		srv:     srv,
		kv:      kv,
		tokens:  tokens,
		cache:   c,
		metrics: reg,
		session: session,
		workflow: NewWorkflow(WorkflowConfig{
			Cart:         backend.NewCart(core),
			Orders:       backend.NewOrders(core),
			Catalog:      backend.NewCatalog(public),
			Tokens:       tokens,
			Cache:        c,
			SessionQuery: query,
			CatalogQuery: query,
			Logger:       logger.Discard(),
		}),
	}
}

func (h *harness) login(t *testing.T, email, password string) *domain.UserProfile {
	t.Helper()
	p, err := h.session.Login(context.Background(), domain.Credentials{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login(%s) error = %v", email, err)
	}
	return p
}

func (h *harness) sessionKey(t *testing.T) string {
	t.Helper()
	tok := h.tokens.Get(context.Background())
	if tok.Access == "" {
		t.Fatal("no session")
	}
	return domain.SessionKey(tok.Access)
}

// checkout places an order for serviceID and returns its id.
func (h *harness) checkout(t *testing.T, serviceID string) string {
	t.Helper()
	ctx := context.Background()
	if err := h.workflow.AddToCart(ctx, serviceID); err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}
	res, err := h.workflow.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	return string(res.OrderID)
}

func (h *harness) calls(method, pattern string) int {
	return h.srv.Calls(method, pattern)
}

func (h *harness) sessionKeysCached() []cache.Key {
	var out []cache.Key
	for _, k := range h.cache.Keys() {
		for _, g := range cache.SessionGroups() {
			if k.HasPrefix(g) {
				out = append(out, k)
			}
		}
	}
	return out
}
