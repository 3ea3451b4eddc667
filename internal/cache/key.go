package cache

import "strings"

// Key identifies a cache entry.
type Key []string

// NewKey builds a key from segments.
func NewKey(segments ...string) Key {
	return append(Key(nil), segments...)
}

// With returns a copy of k extended by segments.
func (k Key) With(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// String renders the key for logs.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with prefix. Every key has the empty
// prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// Contains reports whether any segment equals seg.
func (k Key) Contains(seg string) bool {
	for _, s := range k {
		if s == seg {
			return true
		}
	}
	return false
}

// id is the map key. Segments may contain any printable character.
func (k Key) id() string {
	return strings.Join(k, "\x00")
}
