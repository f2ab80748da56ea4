package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/dispatch"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, database *db.DB, maxBody int64) *Server {
	t.Helper()
	reg := dispatch.NewRegistry()
	require.NoError(t, reg.Register("subtract", func(_ context.Context, req *jsonrpc.Request) (interface{}, error) {
		var params []int
		if err := dispatch.BindParams(req, &params, "array of two integers"); err != nil {
			return nil, err
		}
		return params[0] - params[1], nil
	}))
	require.NoError(t, reg.Register("update", func(context.Context, *jsonrpc.Request) (interface{}, error) {
		return nil, nil
	}))
	return NewServer(dispatch.New(reg, dispatch.Options{MaxConcurrency: 2}), database, maxBody)
}

func post(srv http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, Path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRPC_Call(t *testing.T) {
	srv := newTestServer(t, nil, 1<<20)

	rec := post(srv, `{"jsonrpc": "2.0", "method": "subtract", "params": [42, 23], "id": 1}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"jsonrpc": "2.0", "result": 19, "id": 1}`, rec.Body.String())
}

func TestRPC_ErrorStillReturns200(t *testing.T) {
	srv := newTestServer(t, nil, 1<<20)

	rec := post(srv, `{"jsonrpc": "2.0", "method": "foobar", "id": "1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.MethodNotFound, resp.Error.Code)
	assert.Equal(t, jsonrpc.StringID("1"), resp.ID)
}

func TestRPC_NotificationsOnly(t *testing.T) {
	srv := newTestServer(t, nil, 1<<20)

	rec := post(srv, `{"jsonrpc": "2.0", "method": "update", "params": [1,2,3,4,5]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = post(srv, `[{"jsonrpc": "2.0", "method": "update", "params": [1]}, {"jsonrpc": "2.0", "method": "update", "params": [2]}]`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRPC_Batch(t *testing.T) {
	srv := newTestServer(t, nil, 1<<20)

	rec := post(srv, `[
		{"jsonrpc": "2.0", "method": "subtract", "params": [10, 4], "id": "a"},
		{"jsonrpc": "2.0", "method": "update", "params": [7]},
		{"jsonrpc": "2.0", "method": "subtract", "params": {"x": 1}, "id": "b"}
	]`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resps []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resps))
	require.Len(t, resps, 2)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"a","result":6}`, string(resps[0]))
	assert.Contains(t, string(resps[1]), `"code":-32602`)
}

func TestRPC_ParseError(t *testing.T) {
	srv := newTestServer(t, nil, 1<<20)

	rec := post(srv, `{"jsonrpc": "2.0", "method": "foobar, "params": "bar", "baz]`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":-32700`)
	assert.Contains(t, rec.Body.String(), `"id":null`)
}

func TestRPC_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodGet, Path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestRPC_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, nil, 32)

	rec := post(srv, `{"jsonrpc": "2.0", "method": "subtract", "params": [42, 23], "id": 1}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.InvalidRequest, resp.Error.Code)
}

func TestRPC_LogsTraffic(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	defer database.Close()

	srv := newTestServer(t, database, 1<<20)
	post(srv, `{"jsonrpc": "2.0", "method": "subtract", "params": [2, 1], "id": 3}`)

	connections, err := database.GetAllConnections()
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, Transport, connections[0].Transport)
	assert.False(t, connections[0].IsOpen())

	messages, err := database.GetConnectionMessages(connections[0].ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, db.DirectionInbound, messages[0].Direction)
	assert.Equal(t, "subtract", messages[0].Method)
	assert.Equal(t, db.DirectionOutbound, messages[1].Direction)
	assert.True(t, strings.Contains(messages[1].RawMessage, `"result":1`))
}
