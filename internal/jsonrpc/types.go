// ABOUTME: JSON-RPC 2.0 request and response message shapes
// ABOUTME: Keeps absent, null, and concrete ids distinct when decoding

package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol version accepted in the jsonrpc member.
const Version = "2.0"

// Request is a call or notification sent to a server. A nil ID marks a
// notification: the receiver owes no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a call with the given id, marshaling params when non-nil.
func NewRequest(id ID, method string, params interface{}) (*Request, error) {
	req := &Request{JSONRPC: Version, ID: &id, Method: method}
	if err := req.SetParams(params); err != nil {
		return nil, err
	}
	return req, nil
}

// NewNotification builds a request without an id.
func NewNotification(method string, params interface{}) (*Request, error) {
	req := &Request{JSONRPC: Version, Method: method}
	if err := req.SetParams(params); err != nil {
		return nil, err
	}
	return req, nil
}

// SetParams sets r.Params to the JSON representation of v.
func (r *Request) SetParams(v interface{}) error {
	if v == nil {
		r.Params = nil
		return nil
	}

	if raw, ok := v.(json.RawMessage); ok {
		r.Params = raw
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	r.Params = b
	return nil
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// IsReserved reports whether the method lives in the rpc. namespace.
func (r *Request) IsReserved() bool {
	return IsReservedMethod(r.Method)
}

// UnmarshalJSON decodes a request. encoding/json would collapse "id": null
// into a nil pointer, which would turn a (discouraged) null-id call into a
// notification, so the id is decoded from its raw form.
func (r *Request) UnmarshalJSON(data []byte) error {
	var wire struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	req := Request{
		JSONRPC: wire.JSONRPC,
		Method:  wire.Method,
		Params:  wire.Params,
	}

	if wire.ID != nil {
		var id ID
		if err := id.UnmarshalJSON(wire.ID); err != nil {
			return err
		}
		req.ID = &id
	}

	*r = req
	return nil
}

// Response answers a request. ID is always emitted and is null when the
// request id could not be determined. Exactly one of Result and Error is
// written on the wire.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResponse builds a successful response carrying result.
func NewResponse(id ID, result interface{}) (*Response, error) {
	resp := &Response{JSONRPC: Version, ID: id}
	if err := resp.SetResult(result); err != nil {
		return nil, err
	}
	return resp, nil
}

// NewErrorResponse builds a response carrying err.
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: err}
}

// SetResult sets r.Result to the JSON representation of v.
func (r *Response) SetResult(v interface{}) error {
	if v == nil {
		r.Result = nil
		return nil
	}

	if raw, ok := v.(json.RawMessage); ok {
		r.Result = raw
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	r.Result = b
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	version := r.JSONRPC
	if version == "" {
		version = Version
	}

	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string `json:"jsonrpc"`
			ID      ID     `json:"id"`
			Error   *Error `json:"error"`
		}{version, r.ID, r.Error})
	}

	result := r.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      ID              `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{version, r.ID, result})
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var wire struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	resp := Response{
		JSONRPC: wire.JSONRPC,
		Result:  wire.Result,
		Error:   wire.Error,
	}
	if wire.ID != nil {
		if err := resp.ID.UnmarshalJSON(wire.ID); err != nil {
			return err
		}
	}

	*r = resp
	return nil
}
