// ABOUTME: Built-in JSON-RPC methods served by jsonrpcd
// ABOUTME: Liveness, echo, arithmetic, error-code lookup, and method discovery

package methods

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/harper/jsonrpcd/internal/dispatch"
	rpcerrors "github.com/harper/jsonrpcd/internal/errors"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

// MaxSleep caps system.sleep so a client cannot park a worker forever.
const MaxSleep = time.Minute

// Register installs the built-in methods on d's registry.
func Register(d *dispatch.Dispatcher) error {
	reg := d.Registry()
	builtins := map[string]dispatch.Handler{
		"system.ping":     ping,
		"system.echo":     echo,
		"system.time":     now,
		"system.sleep":    sleep,
		"system.methods":  listMethods(d),
		"math.sum":        sum,
		"errors.classify": classify,
	}

	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := reg.Register(name, builtins[name]); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}
	return nil
}

// RegisterAliases applies configured aliases after the built-ins exist.
func RegisterAliases(reg *dispatch.Registry, aliases map[string]string) error {
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)

	for _, alias := range names {
		if err := reg.Alias(alias, aliases[alias]); err != nil {
			return err
		}
	}
	return nil
}

func ping(_ context.Context, _ *jsonrpc.Request) (interface{}, error) {
	return "pong", nil
}

func echo(_ context.Context, req *jsonrpc.Request) (interface{}, error) {
	if len(req.Params) == 0 {
		return nil, nil
	}
	return req.Params, nil
}

func now(_ context.Context, _ *jsonrpc.Request) (interface{}, error) {
	t := time.Now().UTC()
	return map[string]interface{}{
		"unix":    t.Unix(),
		"rfc3339": t.Format(time.RFC3339Nano),
	}, nil
}

func sleep(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
	var params struct {
		Milliseconds int64 `json:"ms"`
	}
	if err := dispatch.BindParams(req, &params, `object {"ms": <non-negative integer>}`); err != nil {
		return nil, err
	}

	// Range check before converting: large values overflow a Duration.
	if params.Milliseconds < 0 || params.Milliseconds > MaxSleep.Milliseconds() {
		return nil, rpcerrors.NewInvalidParamsError("ms", fmt.Sprintf("integer between 0 and %d", MaxSleep.Milliseconds()),
			fmt.Sprintf("%d", params.Milliseconds))
	}
	d := time.Duration(params.Milliseconds) * time.Millisecond

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return map[string]interface{}{"slept_ms": params.Milliseconds}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func listMethods(d *dispatch.Dispatcher) dispatch.Handler {
	return func(_ context.Context, _ *jsonrpc.Request) (interface{}, error) {
		return map[string]interface{}{
			"methods":    d.Registry().Methods(),
			"extensions": d.Extensions(),
		}, nil
	}
}

// sum accepts positional [1, 2, 3] or named {"numbers": [1, 2, 3]}.
func sum(_ context.Context, req *jsonrpc.Request) (interface{}, error) {
	const expected = `array of numbers or object {"numbers": [...]}`

	var numbers []float64
	if err := json.Unmarshal(req.Params, &numbers); err != nil {
		var named struct {
			Numbers []float64 `json:"numbers"`
		}
		if bindErr := dispatch.BindParams(req, &named, expected); bindErr != nil {
			return nil, bindErr
		}
		if named.Numbers == nil {
			return nil, rpcerrors.NewInvalidParamsError("numbers", expected, "numbers member is missing")
		}
		numbers = named.Numbers
	}

	total := 0.0
	for _, n := range numbers {
		total += n
	}
	return total, nil
}

// classify exposes the error-code classifier: [code] or {"code": code}.
func classify(_ context.Context, req *jsonrpc.Request) (interface{}, error) {
	const expected = `[code] or object {"code": <integer>}`

	var positional []int
	if err := json.Unmarshal(req.Params, &positional); err == nil {
		if len(positional) != 1 {
			return nil, rpcerrors.NewInvalidParamsError("code", expected, fmt.Sprintf("%d values", len(positional)))
		}
		return rpcerrors.DescribeCode(positional[0]), nil
	}

	var named struct {
		Code *int `json:"code"`
	}
	if err := dispatch.BindParams(req, &named, expected); err != nil {
		return nil, err
	}
	if named.Code == nil {
		return nil, rpcerrors.NewInvalidParamsError("code", expected, "code member is missing")
	}
	return rpcerrors.DescribeCode(*named.Code), nil
}
