package oauthredirect

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/certifychain/internal/session"
)

func redirectQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

func TestParse(t *testing.T) {
	t.Run("full redirect", func(t *testing.T) {
		query := "?token=abc&user=%7B%22id%22%3A5%7D&profile=%7B%22department%22%3A%22CS%22%7D"

		result, err := Parse(query)
		require.NoError(t, err)
		assert.Equal(t, session.Credential("abc"), result.Token)
		assert.Equal(t, int64(5), result.Identity.ID)
		require.NotNil(t, result.Profile)
		assert.Equal(t, "CS", result.Profile.Department)
	})

	t.Run("profile is optional by default", func(t *testing.T) {
		result, err := Parse(redirectQuery(map[string]string{
			"token": "abc",
			"user":  `{"id":5,"email":"a@x.com"}`,
		}))
		require.NoError(t, err)
		assert.Nil(t, result.Profile)
	})

	t.Run("is pure", func(t *testing.T) {
		query := redirectQuery(map[string]string{
			"token":   "abc",
			"user":    `{"id":5}`,
			"profile": `{"department":"CS","current_rank":2}`,
		})

		first, err := Parse(query)
		require.NoError(t, err)
		second, err := Parse(query)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.NotSame(t, first.Identity, second.Identity)
	})

	tests := []struct {
		name    string
		query   string
		opts    []Option
		param   string
		wantErr error
	}{
		{"empty", "", nil, ParamToken, ErrMissingToken},
		{"missing token", redirectQuery(map[string]string{"user": `{"id":5}`}), nil, ParamToken, ErrMissingToken},
		{"blank token", redirectQuery(map[string]string{"token": "  ", "user": `{"id":5}`}), nil, ParamToken, ErrMissingToken},
		{"missing user", redirectQuery(map[string]string{"token": "abc"}), nil, ParamUser, ErrMissingUser},
		{"user not json", redirectQuery(map[string]string{"token": "abc", "user": "{bad"}), nil, ParamUser, ErrMalformedUser},
		{"user without id", redirectQuery(map[string]string{"token": "abc", "user": `{"email":"a@x.com"}`}), nil, ParamUser, ErrMalformedUser},
		{"profile not json", redirectQuery(map[string]string{"token": "abc", "user": `{"id":5}`, "profile": "nope"}), nil, ParamProfile, ErrMalformedProfile},
		{"required profile missing", redirectQuery(map[string]string{"token": "abc", "user": `{"id":5}`}), []Option{RequireProfile()}, ParamProfile, ErrMissingProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.query, tt.opts...)
			assert.Nil(t, result)
			require.ErrorIs(t, err, tt.wantErr)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.param, parseErr.Param)
		})
	}

	t.Run("malformed query", func(t *testing.T) {
		_, err := Parse("token=%zz")
		assert.ErrorIs(t, err, ErrMalformedQuery)
	})
}
