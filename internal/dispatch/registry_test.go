package dispatch

import (
	"context"
	"testing"

	"github.com/harper/jsonrpcd/internal/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constHandler(v interface{}) Handler {
	return func(context.Context, *jsonrpc.Request) (interface{}, error) {
		return v, nil
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register("system.ping", constHandler("pong")))
	assert.ErrorIs(t, reg.Register("", constHandler(nil)), ErrEmptyMethod)
	assert.ErrorIs(t, reg.Register("rpc.discover", constHandler(nil)), ErrReservedMethod)
	assert.ErrorIs(t, reg.Register("system.ping", constHandler(nil)), ErrDuplicateMethod)

	// Names are case-sensitive.
	assert.NoError(t, reg.Register("System.Ping", constHandler("PONG")))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_Alias(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("system.ping", constHandler("pong")))

	require.NoError(t, reg.Alias("ping", "system.ping"))
	assert.ErrorIs(t, reg.Alias("ping", "system.ping"), ErrDuplicateMethod)
	assert.ErrorIs(t, reg.Alias("system.ping", "system.ping"), ErrDuplicateMethod)
	assert.ErrorIs(t, reg.Alias("rpc.ping", "system.ping"), ErrReservedMethod)
	assert.ErrorIs(t, reg.Alias("missing", "nowhere"), ErrUnknownMethod)
	assert.ErrorIs(t, reg.Register("ping", constHandler(nil)), ErrDuplicateMethod)

	h, ok := reg.Lookup("ping")
	require.True(t, ok)
	result, err := h(context.Background(), &jsonrpc.Request{})
	require.NoError(t, err)
	assert.Equal(t, "pong", result)

	_, ok = reg.Lookup("pong")
	assert.False(t, ok)

	assert.Equal(t, []string{"ping", "system.ping"}, reg.Methods())
}
