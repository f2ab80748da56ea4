package jsonrpc

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StandardCodes(t *testing.T) {
	tests := []struct {
		code int
		want Category
	}{
		{-32700, CategoryParseError},
		{-32600, CategoryInvalidRequest},
		{-32601, CategoryMethodNotFound},
		{-32602, CategoryInvalidParams},
		{-32603, CategoryInternalError},
	}

	for _, tt := range tests {
		got, err := Classify(tt.code)
		require.NoError(t, err, "code %d", tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
	}
}

func TestClassify_ServerRange(t *testing.T) {
	for code := -32099; code <= -32000; code++ {
		got, err := Classify(code)
		require.NoError(t, err, "code %d", code)
		assert.Equal(t, CategoryServerError, got, "code %d", code)
	}
}

func TestClassify_UndefinedCodes(t *testing.T) {
	for _, code := range []int{1, 0, -1, -32100, -31999, -32604, -32701, -32768} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			got, err := Classify(code)
			assert.Equal(t, CategoryUndefined, got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUndefinedCode))
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "Parse error", CategoryParseError.String())
	assert.Equal(t, "Invalid Request", CategoryInvalidRequest.String())
	assert.Equal(t, "Method not found", CategoryMethodNotFound.String())
	assert.Equal(t, "Invalid params", CategoryInvalidParams.String())
	assert.Equal(t, "Internal error", CategoryInternalError.String())
	assert.Equal(t, "Server error", CategoryServerError.String())
	assert.Equal(t, "Undefined", CategoryUndefined.String())
	assert.Equal(t, "Undefined", Category(99).String())
}

func TestNewError(t *testing.T) {
	assert.Equal(t, "Method not found", NewError(MethodNotFound).Message)
	assert.Equal(t, "Server error", NewError(RateLimited).Message)
	assert.Empty(t, NewError(42).Message)
}

func TestErrorWithData(t *testing.T) {
	base := NewError(InvalidParams)

	withData, err := base.WithData(map[string]string{"field": "a"})
	require.NoError(t, err)

	assert.Nil(t, base.Data, "original must not be modified")
	assert.JSONEq(t, `{"field":"a"}`, string(withData.Data))

	_, err = base.WithData(make(chan int))
	assert.Error(t, err)
}

func TestErrorImplementsError(t *testing.T) {
	var err error = NewError(InternalError)

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Contains(t, err.Error(), "-32603")
}

func TestErrorJSONShape(t *testing.T) {
	e := &Error{Code: ServerError, Message: "Server error"}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":-32000,"message":"Server error"}`, string(data))
}
