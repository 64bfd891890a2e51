// Package oauthredirect extracts the session handed back by the API after a
// third-party identity provider login. The API redirects to the login
// surface with the credential, user and optionally profile encoded as query
// parameters; that payload is unsigned and treated as untrusted input.
package oauthredirect

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wolfeidau/certifychain/internal/session"
)

// Query parameter names used by the API's redirect.
const (
	ParamToken   = "token"
	ParamUser    = "user"
	ParamProfile = "profile"
)

// Sentinel errors
var (
	ErrMalformedQuery   = errors.New("malformed query string")
	ErrMissingToken     = errors.New("token parameter is missing")
	ErrMissingUser      = errors.New("user parameter is missing")
	ErrMissingProfile   = errors.New("profile parameter is missing")
	ErrMalformedUser    = errors.New("user parameter is not a valid user")
	ErrMalformedProfile = errors.New("profile parameter is not a valid profile")
)

// ParseError reports which parameter made a redirect unusable.
type ParseError struct {
	Param string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Param == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("oauth redirect %s: %v", e.Param, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Result is a session ready for session.Store.Login.
type Result struct {
	Token    session.Credential
	Identity *session.Identity
	Profile  *session.Profile
}

type options struct {
	requireProfile bool
}

// Option configures Parse.
type Option func(*options)

// RequireProfile makes a missing profile parameter an error. The sign in
// surface always receives one; other entry points may not.
func RequireProfile() Option {
	return func(o *options) {
		o.requireProfile = true
	}
}

// Parse extracts a Result from a raw query string, with or without the
// leading '?'. It performs no I/O and has no side effects, so parsing the
// same input always yields an equal Result or the same error.
func Parse(rawQuery string, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrMalformedQuery, err)}
	}

	token := strings.TrimSpace(values.Get(ParamToken))
	if token == "" {
		return nil, &ParseError{Param: ParamToken, Err: ErrMissingToken}
	}

	rawUser := values.Get(ParamUser)
	if rawUser == "" {
		return nil, &ParseError{Param: ParamUser, Err: ErrMissingUser}
	}

	identity, err := session.DecodeIdentity([]byte(rawUser))
	if err != nil {
		return nil, &ParseError{Param: ParamUser, Err: fmt.Errorf("%w: %w", ErrMalformedUser, err)}
	}

	result := &Result{
		Token:    session.Credential(token),
		Identity: identity,
	}

	rawProfile := values.Get(ParamProfile)
	if rawProfile == "" {
		if o.requireProfile {
			return nil, &ParseError{Param: ParamProfile, Err: ErrMissingProfile}
		}
		return result, nil
	}

	profile, err := session.DecodeProfile([]byte(rawProfile))
	if err != nil {
		return nil, &ParseError{Param: ParamProfile, Err: fmt.Errorf("%w: %w", ErrMalformedProfile, err)}
	}
	result.Profile = profile

	return result, nil
}
