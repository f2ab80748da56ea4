package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"valid", Request{JSONRPC: "2.0", Method: "m"}, nil},
		{"valid object params", Request{JSONRPC: "2.0", Method: "m", Params: json.RawMessage(`{"a":1}`)}, nil},
		{"valid array params", Request{JSONRPC: "2.0", Method: "m", Params: json.RawMessage(` [1]`)}, nil},
		{"reserved passes", Request{JSONRPC: "2.0", Method: "rpc.cancel"}, nil},
		{"missing version", Request{Method: "m"}, ErrInvalidVersion},
		{"old version", Request{JSONRPC: "1.0", Method: "m"}, ErrInvalidVersion},
		{"missing method", Request{JSONRPC: "2.0"}, ErrMissingMethod},
		{"scalar params", Request{JSONRPC: "2.0", Method: "m", Params: json.RawMessage(`"x"`)}, ErrParamsType},
		{"null params", Request{JSONRPC: "2.0", Method: "m", Params: json.RawMessage(`null`)}, ErrParamsType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsReservedMethod(t *testing.T) {
	assert.True(t, IsReservedMethod("rpc.cancel"))
	assert.True(t, IsReservedMethod("rpc."))
	assert.False(t, IsReservedMethod("rpc"))
	assert.False(t, IsReservedMethod("rpcx.call"))
	assert.False(t, IsReservedMethod("system.rpc.call"))

	req := Request{JSONRPC: "2.0", Method: "rpc.discover"}
	assert.True(t, req.IsReserved())
}

func TestDecodeMessage_Single(t *testing.T) {
	entries, batch := DecodeMessage([]byte(`{"jsonrpc":"2.0","method":"m","id":"x"}`))

	assert.False(t, batch)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Err)
	assert.Equal(t, StringID("x"), entries[0].ID)
	assert.True(t, entries[0].NeedsResponse())
}

func TestDecodeMessage_ParseError(t *testing.T) {
	entries, batch := DecodeMessage([]byte(`{"jsonrpc": "2.0", "method": "foobar, "params": "bar", "baz]`))

	assert.False(t, batch)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Err)
	assert.Equal(t, ParseError, entries[0].Err.Code)
	assert.True(t, entries[0].ID.IsNull())
}

func TestDecodeMessage_BatchParseError(t *testing.T) {
	entries, batch := DecodeMessage([]byte(`[
		{"jsonrpc": "2.0", "method": "sum", "params": [1,2,4], "id": "1"},
		{"jsonrpc": "2.0", "method"
	]`))

	assert.False(t, batch)
	require.Len(t, entries, 1)
	assert.Equal(t, ParseError, entries[0].Err.Code)
}

func TestDecodeMessage_EmptyBatch(t *testing.T) {
	entries, batch := DecodeMessage([]byte(`[]`))

	assert.False(t, batch, "an empty batch is answered with a single error object")
	require.Len(t, entries, 1)
	assert.Equal(t, InvalidRequest, entries[0].Err.Code)
	assert.ErrorIs(t, entries[0].Cause, ErrEmptyBatch)
}

func TestDecodeMessage_InvalidBatchElements(t *testing.T) {
	entries, batch := DecodeMessage([]byte(`[1, 2]`))

	assert.True(t, batch)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotNil(t, e.Err)
		assert.Equal(t, InvalidRequest, e.Err.Code)
		assert.True(t, e.ID.IsNull())
	}
}

func TestDecodeMessage_MixedBatch(t *testing.T) {
	entries, batch := DecodeMessage([]byte(`[
		{"jsonrpc": "2.0", "method": "sum", "params": [1,2,4], "id": "1"},
		{"jsonrpc": "2.0", "method": "notify_hello", "params": [7]},
		{"foo": "boo"},
		{"jsonrpc": "2.0", "method": 1, "id": 5},
		{"jsonrpc": "1.0", "method": "get_data", "id": "9"}
	]`))

	assert.True(t, batch)
	require.Len(t, entries, 5)

	assert.Nil(t, entries[0].Err)
	assert.True(t, entries[0].NeedsResponse())

	assert.Nil(t, entries[1].Err)
	assert.False(t, entries[1].NeedsResponse())

	require.NotNil(t, entries[2].Err)
	assert.True(t, entries[2].ID.IsNull())

	require.NotNil(t, entries[3].Err)
	assert.Equal(t, NumberID(5), entries[3].ID, "id is recovered from a mistyped request")

	require.NotNil(t, entries[4].Err)
	assert.ErrorIs(t, entries[4].Cause, ErrInvalidVersion)
	assert.Equal(t, StringID("9"), entries[4].ID)
}

func TestEncodeResponses(t *testing.T) {
	out, err := EncodeResponses(nil, true)
	require.NoError(t, err)
	assert.Nil(t, out, "all-notification batch produces no output")

	single := NewErrorResponse(NullID(), NewError(InvalidRequest))
	out, err = EncodeResponses([]*Response{single}, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request"}}`, string(out))

	ok, err := NewResponse(NumberID(1), 3)
	require.NoError(t, err)
	out, err = EncodeResponses([]*Response{ok, single}, true)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"jsonrpc":"2.0","id":1,"result":3},
		{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request"}}
	]`, string(out))
}
