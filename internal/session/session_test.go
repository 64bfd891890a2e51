package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))

	fp := Fingerprint("tok123")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("tok123"))
	assert.NotEqual(t, fp, Fingerprint("tok124"))
	assert.NotContains(t, fp, "tok123")
}

func TestDecodeIdentity(t *testing.T) {
	identity, err := DecodeIdentity([]byte(`{"id":1,"email":"a@x.com","first_name":"A","last_name":"B"}`))
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: 1, Email: "a@x.com", FirstName: "A", LastName: "B"}, *identity)

	for _, input := range []string{`not json`, `null`, `{}`, `{"id":0}`, `[1]`} {
		t.Run(input, func(t *testing.T) {
			_, err := DecodeIdentity([]byte(input))
			assert.ErrorIs(t, err, ErrMalformedIdentity)
		})
	}
}

func TestDecodeProfile(t *testing.T) {
	profile, err := DecodeProfile([]byte(`{"department":"CS","join_date":"2024-01-15","current_rank":3,"total_weightage":42.5}`))
	require.NoError(t, err)
	assert.Equal(t, Profile{Department: "CS", JoinDate: "2024-01-15", CurrentRank: 3, TotalWeightage: 42.5}, *profile)

	_, err = DecodeProfile([]byte(`null`))
	assert.ErrorIs(t, err, ErrMalformedProfile)

	_, err = DecodeProfile([]byte(`"CS"`))
	assert.ErrorIs(t, err, ErrMalformedProfile)
}

func TestSession_Equal(t *testing.T) {
	a := Session{Token: "t", Identity: &Identity{ID: 1}, Profile: &Profile{Department: "CS"}}
	b := a.clone()

	assert.True(t, a.Equal(b))
	assert.NotSame(t, a.Identity, b.Identity)

	b.Profile = nil
	assert.False(t, a.Equal(b))
	assert.True(t, Session{}.Equal(Session{}))
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Equal(t, "A", Identity{FirstName: "A", Email: "a@x.com"}.DisplayName())
	assert.Equal(t, "a@x.com", Identity{Email: "a@x.com"}.DisplayName())
}
