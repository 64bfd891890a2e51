package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	last *http.Request
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.last = req
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestAuthTransport(t *testing.T) {
	next := &recordingTransport{}
	transport := NewAuthTransport(next)

	send := func(req *http.Request) string {
		t.Helper()
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return next.last.Header.Get("Authorization")
	}

	t.Run("detached sends no header", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://api.test/api/dashboard/", nil)
		assert.Empty(t, send(req))
	})

	t.Run("attached sets token scheme without mutating caller", func(t *testing.T) {
		transport.Attach("tok123")
		t.Cleanup(transport.Detach)

		req, _ := http.NewRequest(http.MethodGet, "http://api.test/api/dashboard/", nil)
		assert.Equal(t, "Token tok123", send(req))
		assert.Empty(t, req.Header.Get("Authorization"))
		assert.True(t, transport.Attached())
	})

	t.Run("explicit header is kept", func(t *testing.T) {
		transport.Attach("tok123")
		t.Cleanup(transport.Detach)

		req, _ := http.NewRequest(http.MethodGet, "http://api.test/api/profile/", nil)
		setExplicitAuth(req, "other")
		assert.Equal(t, "Token other", send(req))
	})

	t.Run("empty attach detaches", func(t *testing.T) {
		transport.Attach("tok123")
		transport.Attach("")
		assert.False(t, transport.Attached())
	})
}
