package client

import (
	"net/http"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// TokenScheme is the Authorization scheme used by the CertifyChain API.
const TokenScheme = "Token"

var _ http.RoundTripper = (*AuthTransport)(nil)

// AuthTransport adds the attached credential to every outgoing request.
//
// There is one slot; the last Attach or Detach wins. Only the session store
// mutates it. Requests that already carry an Authorization header are sent
// unchanged so calls made with an explicit credential are not overridden.
type AuthTransport struct {
	next  http.RoundTripper
	token atomic.Pointer[oauth2.Token]
}

// NewAuthTransport wraps next. A nil next uses http.DefaultTransport.
func NewAuthTransport(next http.RoundTripper) *AuthTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &AuthTransport{next: next}
}

// Attach sets the credential used by subsequent requests. An empty token detaches.
func (t *AuthTransport) Attach(token string) {
	if token == "" {
		t.Detach()
		return
	}
	t.token.Store(&oauth2.Token{AccessToken: token, TokenType: TokenScheme})
}

// Detach removes the credential.
func (t *AuthTransport) Detach() {
	t.token.Store(nil)
}

// Attached reports whether a credential is attached.
func (t *AuthTransport) Attached() bool {
	return t.token.Load() != nil
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.token.Load()
	if token == nil || req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	authed := req.Clone(req.Context())
	token.SetAuthHeader(authed)
	return t.next.RoundTrip(authed)
}

// setExplicitAuth sets the Authorization header for a single request.
func setExplicitAuth(req *http.Request, token string) {
	(&oauth2.Token{AccessToken: token, TokenType: TokenScheme}).SetAuthHeader(req)
}
