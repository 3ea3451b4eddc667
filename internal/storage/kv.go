package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// OpKind is the kind of a batched mutation.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is one mutation in an Apply batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// SetOp returns a set mutation.
func SetOp(key, value []byte) Op { return Op{Kind: OpSet, Key: key, Value: value} }

// DeleteOp returns a delete mutation.
func DeleteOp(key []byte) Op { return Op{Kind: OpDelete, Key: key} }

// KVEngine is an embedded key-value store.
//
// Implementations are safe for concurrent use.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Apply commits ops atomically: either all are visible or none is.
	Apply(ctx context.Context, ops []Op) error

	// Scan iterates over keys with a given prefix.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// Close releases the engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size.
	LSMSize uint64

	// ValueLogSize is the value log size.
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCRuns is the number of value log rewrites performed.
	GCRuns uint64
}

// KVConfig configures the embedded KV engine.
type KVConfig struct {
	// Engine selects the implementation: "badger" or "memory".
	// Default: "badger"
	Engine string

	// Dir is the storage directory (badger only).
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning parameters. The defaults are sized for
// a handful of small records.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 30m
	GCInterval string

	// GCThreshold is the discard ratio that triggers a value log rewrite.
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 1MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 16MB
	ValueLogFileSize int64

	// MemTableSize is the memtable size in bytes.
	// Default: 8MB
	MemTableSize int64

	// SyncWrites fsyncs every commit. Credentials must survive a crash
	// right after login.
	// Default: true
	SyncWrites bool

	// InMemory runs badger without touching disk.
	InMemory bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: "badger",
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "30m",
		GCThreshold:      0.5,
		CacheSize:        1 << 20,
		ValueLogFileSize: 16 << 20,
		MemTableSize:     8 << 20,
		SyncWrites:       true,
	}
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront", "data")
	}
	return filepath.Join(".storefront", "data")
}
