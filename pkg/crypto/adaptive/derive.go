package adaptive

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// SaltLength is the salt size expected by DeriveKey.
	SaltLength = 16

	// KeyLength is the size of every derived key.
	KeyLength = 32

	// MinPassphraseLength is the shortest passphrase DeriveKey accepts.
	MinPassphraseLength = 8

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	ErrPassphraseTooShort = errors.New("adaptive: passphrase must be at least 8 characters")
	ErrInvalidSalt        = errors.New("adaptive: salt must be 16 bytes")
)

// NewSalt returns a fresh random salt for DeriveKey. The caller persists it
// next to the data it protects.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("adaptive: new salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a master key with Argon2id.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooShort
	}
	if len(salt) != SaltLength {
		return nil, ErrInvalidSalt
	}
	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeyLength), nil
}

// ExpandKey derives a purpose-bound subkey from a master key with HKDF-SHA256.
func ExpandKey(master []byte, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, master, nil, []byte(info))
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("adaptive: expand key: %w", err)
	}
	return key, nil
}
