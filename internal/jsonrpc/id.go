// ABOUTME: Request identifier as a tagged union of string, unsigned integer, and null
// ABOUTME: Rejects fractional, negative, and exponent numbers on decode

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// IDKind tags the active member of an ID.
type IDKind uint8

const (
	// IDNull is the discouraged null id. Responses use it when the
	// request id is unknown.
	IDNull IDKind = iota
	IDString
	IDNumber
)

func (k IDKind) String() string {
	switch k {
	case IDString:
		return "string"
	case IDNumber:
		return "number"
	default:
		return "null"
	}
}

// ID correlates a request with its response. The zero value is the null id.
// IDs are comparable and can be used as map keys.
type ID struct {
	kind IDKind
	str  string
	num  uint64
}

func StringID(s string) ID { return ID{kind: IDString, str: s} }

func NumberID(n uint64) ID { return ID{kind: IDNumber, num: n} }

func NullID() ID { return ID{} }

func (id ID) Kind() IDKind { return id.kind }

func (id ID) IsNull() bool { return id.kind == IDNull }

// Str returns the string member and whether it is the active one.
func (id ID) Str() (string, bool) {
	return id.str, id.kind == IDString
}

// Number returns the integer member and whether it is the active one.
func (id ID) Number() (uint64, bool) {
	return id.num, id.kind == IDNumber
}

// String renders the id as it appears on the wire, for logs.
func (id ID) String() string {
	switch id.kind {
	case IDString:
		return strconv.Quote(id.str)
	case IDNumber:
		return strconv.FormatUint(id.num, 10)
	default:
		return "null"
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case IDString:
		return json.Marshal(id.str)
	case IDNumber:
		return []byte(strconv.FormatUint(id.num, 10)), nil
	default:
		return []byte("null"), nil
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty value", ErrInvalidID)
	}

	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return fmt.Errorf("%w: %s", ErrInvalidID, data)
		}
		*id = NullID()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
		*id = StringID(s)
		return nil
	}

	for _, c := range data {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: %s", ErrInvalidID, data)
		}
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	*id = NumberID(n)
	return nil
}
