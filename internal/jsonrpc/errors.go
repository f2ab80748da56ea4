// ABOUTME: JSON-RPC 2.0 error object, standard codes, and the code classifier
// ABOUTME: Classification is pure and reports unknown codes as ErrUndefinedCode

package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	ServerError    = -32000
)

// The server error range is reserved for implementation-defined errors.
const (
	ServerErrorMin = -32099
	ServerErrorMax = -32000
)

// Implementation-defined server errors.
const (
	RequestCancelled = -32001
	HandlerTimeout   = -32002
	RateLimited      = -32003
	DuplicateID      = -32004
	BatchTooLarge    = -32005
)

// ErrUndefinedCode is returned by Classify for codes outside the table.
var ErrUndefinedCode = errors.New("undefined error code")

// Category groups error codes by meaning.
type Category int

const (
	CategoryUndefined Category = iota
	CategoryParseError
	CategoryInvalidRequest
	CategoryMethodNotFound
	CategoryInvalidParams
	CategoryInternalError
	CategoryServerError
)

var categoryLabels = map[Category]string{
	CategoryUndefined:      "Undefined",
	CategoryParseError:     "Parse error",
	CategoryInvalidRequest: "Invalid Request",
	CategoryMethodNotFound: "Method not found",
	CategoryInvalidParams:  "Invalid params",
	CategoryInternalError:  "Internal error",
	CategoryServerError:    "Server error",
}

// String returns the canonical message for the category.
func (c Category) String() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryUndefined]
}

// Classify maps a code to its category. Codes outside the standard table
// and the server range yield CategoryUndefined and an error wrapping
// ErrUndefinedCode.
func Classify(code int) (Category, error) {
	switch {
	case code == ParseError:
		return CategoryParseError, nil
	case code == InvalidRequest:
		return CategoryInvalidRequest, nil
	case code == MethodNotFound:
		return CategoryMethodNotFound, nil
	case code == InvalidParams:
		return CategoryInvalidParams, nil
	case code == InternalError:
		return CategoryInternalError, nil
	case code >= ServerErrorMin && code <= ServerErrorMax:
		return CategoryServerError, nil
	}
	return CategoryUndefined, fmt.Errorf("%w: %d", ErrUndefinedCode, code)
}

// Error is the error member of a response.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewError builds an error object with the canonical message for code.
// Undefined codes get an empty message; callers can set their own.
func NewError(code int) *Error {
	e := &Error{Code: code}
	if c, err := Classify(code); err == nil {
		e.Message = c.String()
	}
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Category classifies the error code, ignoring the undefined condition.
func (e *Error) Category() Category {
	c, _ := Classify(e.Code)
	return c
}

// WithData returns a copy of e whose data member is the JSON form of v.
func (e *Error) WithData(v interface{}) (*Error, error) {
	cp := *e
	if v == nil {
		cp.Data = nil
		return &cp, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error data: %w", err)
	}
	cp.Data = b
	return &cp, nil
}
