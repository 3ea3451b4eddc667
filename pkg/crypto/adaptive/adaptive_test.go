package adaptive

import (
	"bytes"
	"testing"
)

var (
	key16 = make([]byte, 16)
	key32 = make([]byte, 32)
)

func init() {
	for i := range key16 {
		key16[i] = byte(i)
	}
	for i := range key32 {
		key32[i] = byte(i)
	}
}

func TestNew(t *testing.T) {
	c, err := New(key32)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if typ := c.Type(); typ != CipherAESGCM && typ != CipherChaCha20 {
		t.Errorf("New() returned unknown cipher type: %s", typ)
	}
}

func TestNewWithType(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		typ     CipherType
		wantErr bool
	}{
		{"aes-128", key16, CipherAESGCM, false},
		{"aes-256", key32, CipherAESGCM, false},
		{"chacha20", key32, CipherChaCha20, false},
		{"chacha20 short key", key16, CipherChaCha20, true},
		{"aes bad key", make([]byte, 10), CipherAESGCM, true},
		{"unknown", key32, CipherType("rot13"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithType(tt.key, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.Type() != tt.typ {
				t.Errorf("Type() = %s, want %s", c.Type(), tt.typ)
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(key32, typ)
			if err != nil {
				t.Fatalf("NewWithType() error = %v", err)
			}

			plaintext := []byte(`{"access":"a","refresh":"r"}`)
			aad := []byte("jwtAtom")

			sealed, err := c.Encrypt(plaintext, aad)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(sealed) != len(plaintext)+c.Overhead() {
				t.Errorf("sealed length = %d, want %d", len(sealed), len(plaintext)+c.Overhead())
			}

			opened, err := c.Decrypt(sealed, aad)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened, plaintext) {
				t.Errorf("Decrypt() = %q, want %q", opened, plaintext)
			}

			if _, err := c.Decrypt(sealed, []byte("expAtom")); err == nil {
				t.Error("Decrypt() with different additional data should fail")
			}

			sealed[len(sealed)-1] ^= 0xff
			if _, err := c.Decrypt(sealed, aad); err == nil {
				t.Error("Decrypt() of tampered record should fail")
			}

			if _, err := c.Decrypt([]byte{1, 2}, aad); err != ErrCiphertextTooShort {
				t.Errorf("Decrypt(short) error = %v, want ErrCiphertextTooShort", err)
			}
		})
	}
}

func TestEncrypt_Uniqueness(t *testing.T) {
	c, _ := New(key32)
	a, _ := c.Encrypt([]byte("same"), nil)
	b, _ := c.Encrypt([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDeriveKey(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}

	k1, err := DeriveKey([]byte("correct horse"), salt)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	k2, _ := DeriveKey([]byte("correct horse"), salt)
	if !bytes.Equal(k1, k2) || len(k1) != KeyLength {
		t.Error("DeriveKey() should be deterministic for the same salt")
	}

	other, _ := NewSalt()
	k3, _ := DeriveKey([]byte("correct horse"), other)
	if bytes.Equal(k1, k3) {
		t.Error("different salts should yield different keys")
	}

	if _, err := DeriveKey([]byte("short"), salt); err != ErrPassphraseTooShort {
		t.Errorf("DeriveKey(short) error = %v, want ErrPassphraseTooShort", err)
	}
	if _, err := DeriveKey([]byte("correct horse"), []byte("x")); err != ErrInvalidSalt {
		t.Errorf("DeriveKey(bad salt) error = %v, want ErrInvalidSalt", err)
	}
}

func TestExpandKey(t *testing.T) {
	a, err := ExpandKey(key32, "token-store")
	if err != nil {
		t.Fatalf("ExpandKey() error = %v", err)
	}
	b, _ := ExpandKey(key32, "other")
	if bytes.Equal(a, b) {
		t.Error("different info strings should yield different subkeys")
	}
	if len(a) != KeyLength {
		t.Errorf("len = %d, want %d", len(a), KeyLength)
	}
}

func BenchmarkEncrypt_1KB(b *testing.B) {
	c, _ := New(key32)
	data := make([]byte, 1024)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Encrypt(data, nil)
	}
}
