// Package session holds the authoritative in-memory representation of the
// CLI's authenticated session and decides when it is persisted, hydrated or
// cleared.
package session

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Credential is an opaque bearer token issued by the remote service.
type Credential string

// Identity describes the signed in user. It is replaced wholesale on login.
type Identity struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns the user's first name, falling back to the email.
func (i Identity) DisplayName() string {
	if i.FirstName != "" {
		return i.FirstName
	}
	return i.Email
}

// Profile is the user's ranking profile. It may be refreshed during a session.
type Profile struct {
	Department     string  `json:"department"`
	JoinDate       string  `json:"join_date"`
	CurrentRank    int     `json:"current_rank"`
	TotalWeightage float64 `json:"total_weightage"`
}

// Session is the tuple (Token, Identity, Profile).
//
// Identity is present iff Token is present. Profile may be absent while
// Token is present and is always absent when Token is absent. The zero value
// is the unauthenticated state.
type Session struct {
	Token    Credential
	Identity *Identity
	Profile  *Profile
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Equal compares two sessions field by field.
func (s Session) Equal(other Session) bool {
	if s.Token != other.Token {
		return false
	}
	if (s.Identity == nil) != (other.Identity == nil) {
		return false
	}
	if s.Identity != nil && *s.Identity != *other.Identity {
		return false
	}
	if (s.Profile == nil) != (other.Profile == nil) {
		return false
	}
	return s.Profile == nil || *s.Profile == *other.Profile
}

// clone returns a copy that shares no pointers with s.
func (s Session) clone() Session {
	out := Session{Token: s.Token}
	if s.Identity != nil {
		identity := *s.Identity
		out.Identity = &identity
	}
	if s.Profile != nil {
		profile := *s.Profile
		out.Profile = &profile
	}
	return out
}

// Fingerprint returns a short, stable identifier for a credential which is
// safe to print and log: the first 12 characters of the Base58-encoded
// SHA256 of the token.
func Fingerprint(c Credential) string {
	if c == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(c))
	fp := base58.Encode(hash[:])
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fp
}

// DecodeIdentity parses the JSON form of an Identity. The payload must be
// an object with a positive id.
func DecodeIdentity(data []byte) (*Identity, error) {
	var identity *Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if identity == nil || identity.ID <= 0 {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedIdentity)
	}
	return identity, nil
}

// DecodeProfile parses the JSON form of a Profile. The payload must be an
// object.
func DecodeProfile(data []byte) (*Profile, error) {
	var profile *Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: null profile", ErrMalformedProfile)
	}
	return profile, nil
}

// Sentinel errors
var (
	// ErrInvalidSession is returned by Login when the credential or identity is missing.
	ErrInvalidSession = errors.New("invalid session: credential and identity are required")

	// ErrNotAuthenticated is returned when an operation needs a credential and none is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrStaleResult is returned when a refresh finished after the session it
	// was started for had been replaced or cleared. The result is discarded.
	ErrStaleResult = errors.New("session changed while request was in flight")

	// ErrRemoteLogout reports that remote invalidation failed. Local state
	// is cleared regardless.
	ErrRemoteLogout = errors.New("remote logout failed")

	// ErrMalformedIdentity is returned when an identity payload cannot be decoded.
	ErrMalformedIdentity = errors.New("malformed identity")

	// ErrMalformedProfile is returned when a profile payload cannot be decoded.
	ErrMalformedProfile = errors.New("malformed profile")
)
