package client

import (
	"context"

	"github.com/wolfeidau/certifychain/internal/session"
)

var _ session.Remote = (*SessionRemote)(nil)

// SessionRemote adapts a Client to session.Remote.
type SessionRemote struct {
	client *Client
}

// NewSessionRemote creates a new adapter that implements session.Remote.
func NewSessionRemote(client *Client) *SessionRemote {
	return &SessionRemote{client: client}
}

// FetchProfile returns only the profile part of the profile endpoint.
func (r *SessionRemote) FetchProfile(ctx context.Context, token session.Credential) (*session.Profile, error) {
	resp, err := r.client.FetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// Invalidate revokes token on the API.
func (r *SessionRemote) Invalidate(ctx context.Context, token session.Credential) error {
	return r.client.InvalidateToken(ctx, token)
}
