package token

import (
	"encoding/hex"

	"github.com/spaolacci/murmur3"
)

// Fingerprint returns the 128-bit murmur3 digest of s, hex encoded.
//
// It is a stable identifier, not a MAC: equal inputs give equal output and any
// change to the input changes it. The empty string maps to "".
func Fingerprint(s string) string {
	if s == "" {
		return ""
	}
	h1, h2 := murmur3.Sum128([]byte(s))
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(h1 >> (56 - 8*i))
		b[8+i] = byte(h2 >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}
