package token

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tok, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not RawURL base64: %v", err)
	}
	if len(decoded) != DefaultLength {
		t.Errorf("decoded length = %d, want %d", len(decoded), DefaultLength)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token at iteration %d", i)
		}
		seen[tok] = true
	}
}

func TestGenerateBytes_InvalidLength(t *testing.T) {
	if _, err := GenerateBytes(0); err == nil {
		t.Error("GenerateBytes(0) should fail")
	}
}

func TestSuffix(t *testing.T) {
	s, err := Suffix(8)
	if err != nil {
		t.Fatalf("Suffix() error = %v", err)
	}
	if len(s) != 8 {
		t.Errorf("len = %d, want 8", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(suffixAlphabet, r) {
			t.Errorf("unexpected character %q in %q", r, s)
		}
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"equal inputs", "access-1", "access-1", true},
		{"different inputs", "access-1", "access-2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, fb := Fingerprint(tt.a), Fingerprint(tt.b)
			if (fa == fb) != tt.same {
				t.Errorf("Fingerprint(%q)=%s Fingerprint(%q)=%s, same=%v", tt.a, fa, tt.b, fb, tt.same)
			}
			if len(fa) != 32 {
				t.Errorf("len = %d, want 32", len(fa))
			}
			if strings.Contains(fa, tt.a) {
				t.Error("fingerprint must not contain the input")
			}
		})
	}

	if Fingerprint("") != "" {
		t.Error("Fingerprint(\"\") should be empty")
	}
}

func BenchmarkFingerprint(b *testing.B) {
	tok, _ := Generate()
	for i := 0; i < b.N; i++ {
		_ = Fingerprint(tok)
	}
}
