// Package persist provides the durable key-value storage backing a CLI
// session. Stores know nothing about session semantics; they hold opaque
// string values under a small set of well known keys.
package persist

import "errors"

// Keys used by the session store. Absence of KeyToken is the canonical
// logged out state; the other keys are never authoritative without it.
const (
	KeyToken    = "credential-token"
	KeyIdentity = "identity-json"
	KeyProfile  = "profile-json"
)

// Keys lists every key written by the session store.
var Keys = []string{KeyToken, KeyIdentity, KeyProfile}

// Sentinel errors
var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("key not found")

	// ErrCorrupt is returned when a stored value fails its integrity check.
	ErrCorrupt = errors.New("stored value is corrupt")

	// ErrInvalidKey is returned for keys that cannot be mapped to storage.
	ErrInvalidKey = errors.New("invalid key")
)

// KV is a synchronous key-value store. Every method fails independently;
// callers treat errors as best-effort caching failures.
type KV interface {
	Put(key, value string) error
	Get(key string) (string, error)
	Remove(key string) error
}

func validKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
