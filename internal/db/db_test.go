package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "db.sqlite")
	database, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, path
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	_, path := openTestDB(t)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestConnectionLifecycle(t *testing.T) {
	database, _ := openTestDB(t)

	require.NoError(t, database.OpenConnection("conn-1", "websocket", "127.0.0.1:5000"))
	require.NoError(t, database.OpenConnection("conn-2", "http", ""))

	require.NoError(t, database.LogMessage("conn-1", DirectionInbound, []byte(`{"jsonrpc":"2.0","method":"system.ping","id":1}`)))
	require.NoError(t, database.LogMessage("conn-1", DirectionOutbound, []byte(`{"jsonrpc":"2.0","id":1,"result":"pong"}`)))
	require.NoError(t, database.CloseConnection("conn-1"))

	connections, err := database.GetAllConnections()
	require.NoError(t, err)
	require.Len(t, connections, 2)

	byID := map[string]Connection{}
	for _, c := range connections {
		byID[c.ID] = c
	}

	assert.False(t, byID["conn-1"].IsOpen())
	assert.Equal(t, "websocket", byID["conn-1"].Transport)
	assert.Equal(t, "127.0.0.1:5000", byID["conn-1"].RemoteAddr)
	assert.Equal(t, 2, byID["conn-1"].MessageCount)

	assert.True(t, byID["conn-2"].IsOpen())
	assert.Empty(t, byID["conn-2"].RemoteAddr)
	assert.Equal(t, 0, byID["conn-2"].MessageCount)

	limited, err := database.GetRecentConnections(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLogMessage_ParsedFields(t *testing.T) {
	database, _ := openTestDB(t)
	require.NoError(t, database.OpenConnection("c", "http", ""))

	raws := []string{
		`{"jsonrpc":"2.0","method":"math.sum","params":[1,2],"id":"abc"}`,
		`{"jsonrpc":"2.0","method":"notify"}`,
		`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`,
		`{"jsonrpc":"2.0","id":9,"error":{"code":42,"message":"custom"}}`,
		`[{"jsonrpc":"2.0","method":"a","id":1}]`,
		`not json`,
	}
	for _, raw := range raws {
		require.NoError(t, database.LogMessage("c", DirectionInbound, []byte(raw)))
	}

	messages, err := database.GetConnectionMessages("c")
	require.NoError(t, err)
	require.Len(t, messages, len(raws))

	assert.Equal(t, TypeRequest, messages[0].MessageType)
	assert.Equal(t, "math.sum", messages[0].Method)
	assert.Equal(t, `"abc"`, messages[0].JSONRPCID)
	assert.Equal(t, "string", messages[0].IDKind)
	assert.Nil(t, messages[0].ErrorCode)

	assert.Equal(t, TypeNotification, messages[1].MessageType)
	assert.Empty(t, messages[1].JSONRPCID)

	assert.Equal(t, TypeError, messages[2].MessageType)
	assert.Equal(t, "null", messages[2].JSONRPCID)
	require.NotNil(t, messages[2].ErrorCode)
	assert.Equal(t, -32700, *messages[2].ErrorCode)
	assert.Equal(t, "Parse error", messages[2].ErrorCategory)

	assert.Equal(t, "number", messages[3].IDKind)
	assert.Equal(t, "Undefined", messages[3].ErrorCategory)

	assert.Equal(t, TypeBatch, messages[4].MessageType)
	assert.Equal(t, TypeInvalid, messages[5].MessageType)
	assert.Equal(t, "not json", messages[5].RawMessage)
	assert.False(t, messages[5].Timestamp.IsZero())
}

func TestGetRecentMessages(t *testing.T) {
	database, _ := openTestDB(t)
	require.NoError(t, database.OpenConnection("c", "http", ""))

	for _, m := range []string{"a", "b", "c"} {
		raw := `{"jsonrpc":"2.0","method":"` + m + `"}`
		require.NoError(t, database.LogMessage("c", DirectionInbound, []byte(raw)))
	}

	messages, err := database.GetRecentMessages(2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "c", messages[0].Method)
	assert.Equal(t, "b", messages[1].Method)
}

func TestOpenReadOnly(t *testing.T) {
	database, path := openTestDB(t)
	require.NoError(t, database.OpenConnection("c", "http", ""))

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()

	connections, err := ro.GetAllConnections()
	require.NoError(t, err)
	assert.Len(t, connections, 1)

	assert.Error(t, ro.OpenConnection("d", "http", ""), "read-only handle refuses writes")
}

func TestOpenReadOnly_Missing(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.sqlite"))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		raw  string
		want MessageInfo
	}{
		{`{"jsonrpc":"2.0","method":"m","id":7}`, MessageInfo{Type: TypeRequest, Method: "m", ID: "7", IDKind: "number"}},
		{`{"jsonrpc":"2.0","method":"m","id":null}`, MessageInfo{Type: TypeRequest, Method: "m", ID: "null", IDKind: "null"}},
		{`{"jsonrpc":"2.0","method":"m","id":-1}`, MessageInfo{Type: TypeRequest, Method: "m"}},
		{`{"jsonrpc":"2.0","id":"x","result":null}`, MessageInfo{Type: TypeResponse, ID: `"x"`, IDKind: "string"}},
		{`  [1, 2]`, MessageInfo{Type: TypeBatch}},
		{`[1, `, MessageInfo{Type: TypeInvalid}},
		{`{"foo":"bar"}`, MessageInfo{Type: TypeInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe([]byte(tt.raw)))
		})
	}
}
