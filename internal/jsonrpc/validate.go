// ABOUTME: Structural validation of decoded requests
// ABOUTME: Checks version, method, params shape, and reserved method names

package jsonrpc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ReservedPrefix starts method names reserved for rpc-internal extensions.
const ReservedPrefix = "rpc."

var (
	ErrInvalidVersion = errors.New(`jsonrpc member must be exactly "2.0"`)
	ErrMissingMethod  = errors.New("method member is required")
	ErrParamsType     = errors.New("params member must be an object or array")
	ErrInvalidID      = errors.New("id must be a string, a non-negative integer, or null")
)

// IsReservedMethod reports whether name begins with "rpc.".
func IsReservedMethod(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

// Validate checks the request against the JSON-RPC 2.0 request object rules.
// Reserved method names pass: whether an rpc. method exists is up to the
// receiver.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("%w: got %q", ErrInvalidVersion, r.JSONRPC)
	}

	if r.Method == "" {
		return ErrMissingMethod
	}

	if len(r.Params) > 0 {
		p := bytes.TrimSpace(r.Params)
		if len(p) == 0 || (p[0] != '{' && p[0] != '[') {
			return fmt.Errorf("%w: got %s", ErrParamsType, preview(p))
		}
	}

	return nil
}

func preview(b []byte) string {
	const limit = 32
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
