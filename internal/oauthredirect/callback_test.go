package oauthredirect

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCallback(t *testing.T, rawURL string) (int, string) {
	t.Helper()

	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCallbackServer(t *testing.T) {
	t.Run("delivers the first redirect", func(t *testing.T) {
		cb, err := NewCallbackServer("127.0.0.1:0", "")
		require.NoError(t, err)
		t.Cleanup(func() { _ = cb.Close() })

		assert.True(t, strings.HasSuffix(cb.URL(), DefaultCallbackPath))

		status, _ := getCallback(t, cb.URL())
		assert.Equal(t, http.StatusBadRequest, status, "probe without parameters")

		query := redirectQuery(map[string]string{"token": "abc", "user": `{"id":5}`})
		status, body := getCallback(t, cb.URL()+"?"+query)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "Login complete")

		status, _ = getCallback(t, cb.URL()+"?"+query)
		assert.Equal(t, http.StatusConflict, status)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := cb.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Identity.ID)
	})

	t.Run("reports parse failures", func(t *testing.T) {
		cb, err := NewCallbackServer("127.0.0.1:0", "/callback", RequireProfile())
		require.NoError(t, err)
		t.Cleanup(func() { _ = cb.Close() })

		query := redirectQuery(map[string]string{"token": "abc", "user": `{"id":5}`})
		status, body := getCallback(t, cb.URL()+"?"+query)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "Login failed")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err = cb.Wait(ctx)
		assert.ErrorIs(t, err, ErrMissingProfile)
	})

	t.Run("wait honours context", func(t *testing.T) {
		cb, err := NewCallbackServer("127.0.0.1:0", "")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = cb.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, cb.Close())
	})

	t.Run("rejects non-GET", func(t *testing.T) {
		cb, err := NewCallbackServer("127.0.0.1:0", "")
		require.NoError(t, err)
		t.Cleanup(func() { _ = cb.Close() })

		resp, err := http.Post(cb.URL(), "text/plain", strings.NewReader("x"))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})
}
