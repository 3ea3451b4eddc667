package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// DefaultLength is the default token length in bytes.
const DefaultLength = 32

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate generates a cryptographically secure random token.
//
// The returned token is Base64 RawURL encoded.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a token with the specified byte length.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	if length <= 0 {
		return nil, errors.New("token: length must be positive")
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Suffix returns n random lowercase alphanumeric characters.
func Suffix(n int) (string, error) {
	b, err := GenerateBytes(n)
	if err != nil {
		return "", err
	}
	for i := range b {
		b[i] = suffixAlphabet[int(b[i])%len(suffixAlphabet)]
	}
	return string(b), nil
}
