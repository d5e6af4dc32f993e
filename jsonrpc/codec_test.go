package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecDecodeRequest(t *testing.T) {
	c := NewCodec()
	msg, err := c.Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping","params":{}}`))
	require.NoError(t, err)
	require.Equal(t, KindRequest, msg.Kind)
	assert.Equal(t, "ping", msg.Request.Method)
	assert.Equal(t, NewIntID(1), msg.Request.ID)
}

func TestCodecDecodeNotification(t *testing.T) {
	c := NewCodec()
	msg, err := c.Decode([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	require.Equal(t, KindNotification, msg.Kind)
	assert.Equal(t, "notifications/initialized", msg.Notification.Method)
}

func TestCodecDecodeResponseSuccessAndError(t *testing.T) {
	c := NewCodec()

	msg, err := c.Decode([]byte(`{"jsonrpc":"2.0","id":"a","result":{"ok":true}}`))
	require.NoError(t, err)
	require.Equal(t, KindResponse, msg.Kind)
	assert.False(t, msg.Response.IsError())

	msg, err = c.Decode([]byte(`{"jsonrpc":"2.0","id":"a","error":{"code":-32601,"message":"nope"}}`))
	require.NoError(t, err)
	require.Equal(t, KindResponse, msg.Kind)
	assert.True(t, msg.Response.IsError())
	assert.Equal(t, int32(-32601), msg.Response.Err.Code)
}

func TestCodecDecodeBatch(t *testing.T) {
	c := NewCodec()
	msg, err := c.Decode([]byte(`[{"jsonrpc":"2.0","id":1,"method":"a"},{"jsonrpc":"2.0","method":"b"}]`))
	require.NoError(t, err)
	require.Equal(t, KindBatch, msg.Kind)
	require.Len(t, msg.Batch, 2)
	assert.Equal(t, KindRequest, msg.Batch[0].Kind)
	assert.Equal(t, KindNotification, msg.Batch[1].Kind)
}

func TestCodecDecodeUnrecognized(t *testing.T) {
	c := NewCodec()
	msg, err := c.Decode([]byte(`{"jsonrpc":"2.0","foo":"bar"}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, msg.Kind)
}

func TestCodecDecodeWrongVersion(t *testing.T) {
	c := NewCodec()
	_, err := c.Decode([]byte(`{"jsonrpc":"1.0","id":1,"method":"a"}`))
	assert.Error(t, err)
}

func TestCodecEncodeResponseMergesUnknownFields(t *testing.T) {
	c := NewCodec()
	resp := &Response{ID: NewIntID(1), Result: json.RawMessage(`{"known":1}`)}

	extra := map[string]json.RawMessage{
		"legacyField": json.RawMessage(`"kept"`),
	}
	data, err := c.EncodeResponse(resp, extra)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	result := decoded["result"].(map[string]any)
	assert.Equal(t, float64(1), result["known"])
	assert.Equal(t, "kept", result["legacyField"])
}

func TestExtractUnknownResultFields(t *testing.T) {
	result := json.RawMessage(`{"a":1,"b":2,"c":3}`)
	known := map[string]struct{}{"a": {}}
	unknown := ExtractUnknownResultFields(result, known)
	require.Len(t, unknown, 2)
	_, hasB := unknown["b"]
	_, hasC := unknown["c"]
	assert.True(t, hasB)
	assert.True(t, hasC)
}

func TestCodecEncodeRequestRoundTrip(t *testing.T) {
	c := NewCodec()
	req := &Request{ID: NewStringID("x"), Method: "tools/call", Params: json.RawMessage(`{"n":1}`)}
	data, err := c.EncodeRequest(req)
	require.NoError(t, err)

	msg, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, KindRequest, msg.Kind)
	assert.Equal(t, "tools/call", msg.Request.Method)
	assert.Equal(t, NewStringID("x"), msg.Request.ID)
}
