// Package adaptive seals small records with an AEAD cipher.
//
// The cipher is picked from the host architecture: AES-256-GCM where the CPU
// has AES instructions, ChaCha20-Poly1305 elsewhere. Ciphertexts carry their
// nonce as a prefix, so a sealed record is self-contained:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(record, []byte("jwtAtom"))
//	record, err := c.Decrypt(sealed, []byte("jwtAtom"))
//
// Keys come either from configuration (raw 32 bytes) or from a passphrase via
// DeriveKey (Argon2id) followed by ExpandKey (HKDF-SHA256) per purpose.
package adaptive
