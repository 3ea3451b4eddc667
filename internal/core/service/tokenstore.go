package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/storage"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/pkg/crypto/adaptive"
)

// Durable record keys.
const (
	KeyJWT  = "jwtAtom"
	KeyExp  = "expAtom"
	KeySalt = "kdf.salt"
)

const tokenKeyInfo = "token-store"

// TokenStoreConfig configures a TokenStore.
type TokenStoreConfig struct {
	Engine storage.KVEngine

	// Passphrase enables encryption at rest. Empty stores plaintext.
	Passphrase string
	// Cipher forces a cipher type. Empty picks one for the hardware.
	Cipher adaptive.CipherType

	Logger logger.Logger
}

// TokenStore owns the session token. It keeps the token in memory and
// mirrors it to the KV engine under KeyJWT and KeyExp.
type TokenStore struct {
	kv     storage.KVEngine
	cipher adaptive.Cipher
	logger logger.Logger

	mu     sync.RWMutex
	loaded bool
	tok    domain.Token

	listeners
}

type jwtRecord struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// NewTokenStore creates a store over cfg.Engine. With a passphrase the KDF
// salt is read from the engine, or generated and saved on first use.
func NewTokenStore(ctx context.Context, cfg TokenStoreConfig) (*TokenStore, error) {
	if cfg.Engine == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("token store requires a storage engine")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	s := &TokenStore{
		kv:     cfg.Engine,
		logger: cfg.Logger.With("component", "token_store"),
	}

	if cfg.Passphrase != "" {
		c, err := s.openCipher(ctx, cfg.Passphrase, cfg.Cipher)
		if err != nil {
			return nil, err
		}
		s.cipher = c
	}
	return s, nil
}

func (s *TokenStore) openCipher(ctx context.Context, passphrase string, typ adaptive.CipherType) (adaptive.Cipher, error) {
	salt, err := s.kv.Get(ctx, []byte(KeySalt))
	if errors.Is(err, storage.ErrKeyNotFound) || (err == nil && len(salt) != adaptive.SaltLength) {
		if salt, err = adaptive.NewSalt(); err != nil {
			return nil, domain.ErrStorage.WithCause(err)
		}
		if err = s.kv.Set(ctx, []byte(KeySalt), salt); err != nil {
			return nil, domain.ErrStorage.WithDetails("save kdf salt").WithCause(err)
		}
	} else if err != nil {
		return nil, domain.ErrStorage.WithDetails("read kdf salt").WithCause(err)
	}

	master, err := adaptive.DeriveKey([]byte(passphrase), salt)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	key, err := adaptive.ExpandKey(master, tokenKeyInfo)
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}

	var c adaptive.Cipher
	if typ == "" {
		c, err = adaptive.New(key)
	} else {
		c, err = adaptive.NewWithType(key, typ)
	}
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails(err.Error())
	}
	return c, nil
}

// Encrypted reports whether records are sealed at rest.
func (s *TokenStore) Encrypted() bool { return s.cipher != nil }

// Get returns the current token, loading it from storage on first use.
func (s *TokenStore) Get(ctx context.Context) domain.Token {
	s.mu.RLock()
	if s.loaded {
		tok := s.tok
		s.mu.RUnlock()
		return tok
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	return s.tok
}

// IsAuthenticated reports whether an access token is held.
func (s *TokenStore) IsAuthenticated(ctx context.Context) bool {
	return s.Get(ctx).Access != ""
}

// Set replaces the token. Both records are written in one transaction
// before the in-memory value changes. A zero token clears the store.
func (s *TokenStore) Set(ctx context.Context, tok domain.Token) error {
	tok, ops, err := s.prepare(tok)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ensureLoaded(ctx)
	return s.commitLocked(ctx, tok, ops)
}

// Clear empties the store and deletes both records in one transaction.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.ensureLoaded(ctx)
	return s.commitLocked(ctx, domain.Token{}, deleteOps())
}

// CompareAndSet stores next only while the held token equals old, and
// reports whether it did. A zero next clears the store. The comparison and
// the write happen under one lock, so a token stored by a concurrent login
// or logout is never overwritten.
func (s *TokenStore) CompareAndSet(ctx context.Context, old, next domain.Token) (bool, error) {
	next, ops, err := s.prepare(next)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.ensureLoaded(ctx)
	if s.tok != old {
		s.mu.Unlock()
		return false, nil
	}
	return true, s.commitLocked(ctx, next, ops)
}

// prepare validates tok, fills a missing expiry from the JWT and encodes
// the storage ops that persist it.
func (s *TokenStore) prepare(tok domain.Token) (domain.Token, []storage.Op, error) {
	if err := tok.Validate(); err != nil {
		return tok, nil, err
	}
	if tok.IsZero() {
		return domain.Token{}, deleteOps(), nil
	}
	if tok.ExpiresAt == 0 {
		tok.ExpiresAt = domain.ExpiryFromJWT(tok.Access)
	}
	ops, err := s.encode(tok)
	return tok, ops, err
}

// commitLocked applies ops and swaps in tok, then releases mu and notifies
// listeners. A failed write keeps the old token, except when clearing: the
// session ends in memory even if the records could not be deleted.
func (s *TokenStore) commitLocked(ctx context.Context, tok domain.Token, ops []storage.Op) error {
	clearing := tok.IsZero()
	err := s.kv.Apply(ctx, ops)
	if err != nil && !clearing {
		s.mu.Unlock()
		return domain.ErrStorage.WithDetails("save token").WithCause(err)
	}
	prev := s.tok
	s.tok = tok
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to delete stored token", "error", err)
	} else if !clearing {
		s.logger.Debug("token stored", "expires_at", tok.ExpiresAt, "encrypted", s.cipher != nil)
	}
	if prev != tok {
		s.notify(prev, tok)
	}
	if err != nil {
		return domain.ErrStorage.WithDetails("delete token").WithCause(err)
	}
	return nil
}

func deleteOps() []storage.Op {
	return []storage.Op{
		storage.DeleteOp([]byte(KeyJWT)),
		storage.DeleteOp([]byte(KeyExp)),
	}
}

// ensureLoaded reads the records once. Callers hold mu for writing.
func (s *TokenStore) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	tok, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("stored token unreadable, starting signed out", "error", err)
		return
	}
	s.tok = tok
}

func (s *TokenStore) load(ctx context.Context) (domain.Token, error) {
	raw, err := s.kv.Get(ctx, []byte(KeyJWT))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return domain.Token{}, nil
	}
	if err != nil {
		return domain.Token{}, err
	}
	if raw, err = s.open(KeyJWT, raw); err != nil {
		return domain.Token{}, err
	}

	var rec jwtRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Token{}, err
	}
	tok := domain.Token{Access: rec.Access, Refresh: rec.Refresh}
	if err := tok.Validate(); err != nil {
		return domain.Token{}, err
	}

	if exp, err := s.kv.Get(ctx, []byte(KeyExp)); err == nil {
		if exp, err = s.open(KeyExp, exp); err == nil {
			tok.ExpiresAt, _ = strconv.ParseInt(string(exp), 10, 64)
		}
	}
	if tok.ExpiresAt == 0 {
		tok.ExpiresAt = domain.ExpiryFromJWT(tok.Access)
	}
	return tok, nil
}

func (s *TokenStore) encode(tok domain.Token) ([]storage.Op, error) {
	raw, err := json.Marshal(jwtRecord{Access: tok.Access, Refresh: tok.Refresh})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	jwt, err := s.seal(KeyJWT, raw)
	if err != nil {
		return nil, err
	}
	exp, err := s.seal(KeyExp, []byte(strconv.FormatInt(tok.ExpiresAt, 10)))
	if err != nil {
		return nil, err
	}
	return []storage.Op{
		storage.SetOp([]byte(KeyJWT), jwt),
		storage.SetOp([]byte(KeyExp), exp),
	}, nil
}

// seal binds each record to its key through the additional data so records
// cannot be swapped.
func (s *TokenStore) seal(key string, plain []byte) ([]byte, error) {
	if s.cipher == nil {
		return plain, nil
	}
	out, err := s.cipher.Encrypt(plain, []byte(key))
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("encrypt token").WithCause(err)
	}
	return out, nil
}

func (s *TokenStore) open(key string, data []byte) ([]byte, error) {
	if s.cipher == nil {
		return data, nil
	}
	return s.cipher.Decrypt(data, []byte(key))
}
