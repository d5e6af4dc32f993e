package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	cases := []RequestID{
		NewStringID("abc"),
		NewIntID(42),
		NewIntID(0),
		NewStringID(""),
	}
	for _, id := range cases {
		data, err := json.Marshal(id)
		require.NoError(t, err)

		var decoded RequestID
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, id, decoded)
	}
}

func TestRequestIDStringNoCollision(t *testing.T) {
	s := NewStringID("12")
	i := NewIntID(12)
	assert.NotEqual(t, s.String(), i.String())
}

func TestRequestIDIsZero(t *testing.T) {
	assert.True(t, RequestID{}.IsZero())
	assert.False(t, NewStringID("x").IsZero())
	assert.False(t, NewIntID(0).IsZero())
}

func TestRequestIDUnmarshalNull(t *testing.T) {
	var id RequestID
	require.NoError(t, json.Unmarshal([]byte("null"), &id))
	assert.True(t, id.IsZero())
}

func TestProgressTokenRoundTrip(t *testing.T) {
	cases := []ProgressToken{
		NewStringToken("tok"),
		NewIntToken(7),
	}
	for _, tok := range cases {
		data, err := json.Marshal(tok)
		require.NoError(t, err)

		var decoded ProgressToken
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, tok, decoded)
	}
}
