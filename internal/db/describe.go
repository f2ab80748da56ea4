// ABOUTME: Extracts the indexed fields of a logged JSON-RPC message
// ABOUTME: Message type, method, id and its kind, and the error category

package db

import (
	"bytes"
	"encoding/json"

	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

// Message types stored in the message_type column.
const (
	TypeRequest      = "request"
	TypeNotification = "notification"
	TypeResponse     = "response"
	TypeError        = "error"
	TypeBatch        = "batch"
	TypeInvalid      = "invalid"
)

// MessageInfo holds what Describe could read from a raw message. Unknown
// fields are empty.
type MessageInfo struct {
	Type          string
	Method        string
	ID            string // wire form, e.g. "abc" with quotes, 7, or null
	IDKind        string
	ErrorCode     *int
	ErrorCategory string
}

// Describe never fails. Messages that are not JSON-RPC are typed invalid.
func Describe(raw []byte) MessageInfo {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if json.Valid(trimmed) {
			return MessageInfo{Type: TypeBatch}
		}
		return MessageInfo{Type: TypeInvalid}
	}

	var msg struct {
		Method *string          `json:"method"`
		ID     json.RawMessage  `json:"id"`
		Result json.RawMessage  `json:"result"`
		Error  *json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return MessageInfo{Type: TypeInvalid}
	}

	var info MessageInfo
	if msg.ID != nil {
		var id jsonrpc.ID
		if err := id.UnmarshalJSON(msg.ID); err == nil {
			info.ID = id.String()
			info.IDKind = id.Kind().String()
		}
	}

	switch {
	case msg.Method != nil:
		info.Method = *msg.Method
		info.Type = TypeRequest
		if msg.ID == nil {
			info.Type = TypeNotification
		}
	case msg.Error != nil:
		info.Type = TypeError
		var e jsonrpc.Error
		if json.Unmarshal(*msg.Error, &e) == nil {
			code := e.Code
			info.ErrorCode = &code
			info.ErrorCategory = e.Category().String()
		}
	case msg.Result != nil:
		info.Type = TypeResponse
	default:
		info.Type = TypeInvalid
	}
	return info
}
