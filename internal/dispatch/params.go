// ABOUTME: Decoding of request params into handler argument structs
// ABOUTME: Failures become Invalid params errors naming the expected shape

package dispatch

import (
	"encoding/json"
	"fmt"

	rpcerrors "github.com/harper/jsonrpcd/internal/errors"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

// BindParams decodes the request params into v. Failures come back as an
// Invalid params error naming expected, ready to return from a handler.
func BindParams(req *jsonrpc.Request, v interface{}, expected string) error {
	if len(req.Params) == 0 {
		return rpcerrors.NewInvalidParamsError("params", expected, "params member is missing")
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return rpcerrors.NewInvalidParamsError("params", expected, fmt.Sprintf("%v", err))
	}
	return nil
}
