package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// MemoryEngine is a KVEngine held entirely in process memory. Nothing
// survives Close.
type MemoryEngine struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{items: make(map[string][]byte)}
}

func (m *MemoryEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.items[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (m *MemoryEngine) Set(ctx context.Context, key, value []byte) error {
	return m.Apply(ctx, []Op{SetOp(key, value)})
}

func (m *MemoryEngine) Delete(ctx context.Context, key []byte) error {
	return m.Apply(ctx, []Op{DeleteOp(key)})
}

// Apply validates the whole batch before mutating, so a bad op leaves the
// engine untouched.
func (m *MemoryEngine) Apply(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, op := range ops {
		if op.Kind != OpSet && op.Kind != OpDelete {
			return fmt.Errorf("memory: unknown op kind %d", op.Kind)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, op := range ops {
		if op.Kind == OpSet {
			m.items[string(op.Key)] = bytes.Clone(op.Value)
		} else {
			delete(m.items, string(op.Key))
		}
	}
	return nil
}

// Scan visits matching keys in lexical order, like Badger.
func (m *MemoryEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = bytes.Clone(m.items[k])
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if !fn([]byte(k), values[i]) {
			break
		}
	}
	return nil
}

func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = nil
	return nil
}

// Open builds the engine selected by cfg.Engine.
func Open(cfg KVConfig, logger *slog.Logger) (KVEngine, error) {
	switch cfg.Engine {
	case "", "badger":
		return NewBadgerEngine(cfg, logger)
	case "memory":
		return NewMemoryEngine(), nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
