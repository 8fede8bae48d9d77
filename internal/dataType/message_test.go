package dataType

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := NewChat("127.0.0.1:9001", "127.0.0.1:9003", "hello world", 8)

	data, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestEncodeIsCompact(t *testing.T) {
	msg := NewChat("127.0.0.1:9001", "", "hello", 8)
	data, err := msg.Encode()
	require.NoError(t, err)
	assert.False(t, bytes.ContainsAny(data, " \n\t"), "wire encoding should carry no padding: %s", data)
}

func TestNewChatAssignsUniqueIDs(t *testing.T) {
	a := NewChat("127.0.0.1:9001", "", "x", 8)
	b := NewChat("127.0.0.1:9001", "", "x", 8)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, KindChat, a.Kind)
	assert.Equal(t, 8, a.TTL)
	assert.Greater(t, a.TS, float64(0))
}

func TestNewPingIsBodylessBroadcast(t *testing.T) {
	p := NewPing("127.0.0.1:9001", 4)
	assert.Equal(t, KindPing, p.Kind)
	assert.True(t, p.IsBroadcast())
	assert.Empty(t, p.Body)
}

func TestForwardedDecrementsTTLOnly(t *testing.T) {
	msg := NewChat("127.0.0.1:9001", "", "hop", 5)
	fwd := msg.Forwarded()

	assert.Equal(t, 4, fwd.TTL)
	assert.Equal(t, 5, msg.TTL, "original must not be mutated")

	fwd.TTL = msg.TTL
	assert.Equal(t, msg, fwd, "every other field is preserved")
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"id":"x","ts":1`))
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
}

func TestDecodeRejectsWrongContainer(t *testing.T) {
	_, err := DecodeMessage([]byte(`["id","ts"]`))
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"id":   `{"ts":1,"ttl":8,"kind":"CHAT","src":"a:1","dst":"","body":"x"}`,
		"ttl":  `{"id":"m1","ts":1,"kind":"CHAT","src":"a:1","dst":"","body":"x"}`,
		"kind": `{"id":"m1","ts":1,"ttl":8,"src":"a:1","dst":"","body":"x"}`,
		"body": `{"id":"m1","ts":1,"ttl":8,"kind":"CHAT","src":"a:1","dst":""}`,
	}
	for missing, raw := range cases {
		_, err := DecodeMessage([]byte(raw))
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr), "missing %s should fail decode", missing)
	}
}

func TestDecodeRejectsEmptyIDAndSrc(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"id":"","ts":1,"ttl":8,"kind":"CHAT","src":"a:1","dst":"","body":"x"}`))
	assert.Error(t, err)

	_, err = DecodeMessage([]byte(`{"id":"m1","ts":1,"ttl":8,"kind":"CHAT","src":"","dst":"","body":"x"}`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"id":"m1","ts":1,"ttl":8,"kind":"NOTICE","src":"a:1","dst":"","body":"x"}`))
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Reason, "unknown kind")
}

func TestDecodeAcceptsNonPositiveTTL(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"id":"m1","ts":1,"ttl":-3,"kind":"CHAT","src":"a:1","dst":"","body":"x"}`))
	require.NoError(t, err, "ttl floor is relay policy, not a codec concern")
	assert.Equal(t, -3, msg.TTL)
}
