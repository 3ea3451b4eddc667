package connection

import (
	"context"
	"sync"
	"testing"

	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
)

type memTokens struct {
	mu     sync.Mutex
	tok    domain.Token
	sets   int
	clears int
}

func newMemTokens(access, refresh string) *memTokens {
	return &memTokens{tok: domain.Token{Access: access, Refresh: refresh}}
}

func (m *memTokens) Get(context.Context) domain.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok
}

func (m *memTokens) Set(_ context.Context, tok domain.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	m.sets++
	return nil
}

func (m *memTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = domain.Token{}
	m.clears++
	return nil
}

func (m *memTokens) CompareAndSet(_ context.Context, old, next domain.Token) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok != old {
		return false, nil
	}
	m.tok = next
	if next.IsZero() {
		m.clears++
	} else {
		m.sets++
	}
	return true, nil
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()
	c, err := New(Config{Name: "core", BaseURL: baseURL, Tokens: tokens, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}
