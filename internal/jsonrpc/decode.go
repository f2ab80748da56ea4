// ABOUTME: Decoding of single and batch messages into validated entries
// ABOUTME: Parse failures and malformed batch elements become error entries, never panics

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch = errors.New("batch must contain at least one request")
	ErrNotObject  = errors.New("request must be a JSON object")
)

// Entry is one decoded request of a message. When Err is set the request
// could not be used and Err must be sent back under ID; Cause holds the
// underlying Go error for logging or richer reporting.
type Entry struct {
	Request *Request
	ID      ID
	Err     *Error
	Cause   error
}

// NeedsResponse reports whether the sender is owed a response for this entry.
// Entries that failed to decode are always answered, with a null id when the
// id could not be recovered.
func (e Entry) NeedsResponse() bool {
	if e.Err != nil {
		return true
	}
	return e.Request != nil && !e.Request.IsNotification()
}

// DecodeMessage splits a raw message into entries. batch reports whether the
// message was a JSON array, which decides the shape of the reply.
func DecodeMessage(data []byte) (entries []Entry, batch bool) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return []Entry{errorEntry(NullID(), ParseError, errors.New("invalid JSON"))}, false
	}

	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []Entry{decodeEntry(trimmed)}, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return []Entry{errorEntry(NullID(), ParseError, err)}, false
	}

	if len(elems) == 0 {
		return []Entry{errorEntry(NullID(), InvalidRequest, ErrEmptyBatch)}, false
	}

	entries = make([]Entry, 0, len(elems))
	for _, elem := range elems {
		entries = append(entries, decodeEntry(elem))
	}
	return entries, true
}

func decodeEntry(raw json.RawMessage) Entry {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return errorEntry(NullID(), InvalidRequest, ErrNotObject)
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorEntry(recoverID(raw), InvalidRequest, err)
	}

	id := NullID()
	if req.ID != nil {
		id = *req.ID
	}

	if err := req.Validate(); err != nil {
		return errorEntry(id, InvalidRequest, err)
	}

	return Entry{Request: &req, ID: id}
}

// recoverID pulls a usable id out of an object that failed to decode as a
// request, so the error response can still be correlated.
func recoverID(raw json.RawMessage) ID {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(raw, &head) != nil || head.ID == nil {
		return NullID()
	}

	var id ID
	if id.UnmarshalJSON(head.ID) != nil {
		return NullID()
	}
	return id
}

func errorEntry(id ID, code int, cause error) Entry {
	e := NewError(code)
	if withData, err := e.WithData(map[string]string{"details": cause.Error()}); err == nil {
		e = withData
	}
	return Entry{ID: id, Err: e, Cause: cause}
}

// EncodeResponses renders the reply for a message. It returns nil when there
// is nothing to send, which happens when every entry was a notification.
func EncodeResponses(responses []*Response, batch bool) ([]byte, error) {
	if len(responses) == 0 {
		return nil, nil
	}

	if !batch {
		if len(responses) != 1 {
			return nil, fmt.Errorf("single message produced %d responses", len(responses))
		}
		return json.Marshal(responses[0])
	}

	return json.Marshal(responses)
}
