// ABOUTME: Command-line JSON-RPC client for jsonrpcd
// ABOUTME: Sends one call or notification over WebSocket and prints the result

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/harper/jsonrpcd/internal/client"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

func main() {
	url := flag.String("url", "ws://localhost:8081/", "WebSocket endpoint")
	method := flag.String("method", "system.ping", "method to call")
	params := flag.String("params", "", "params as a JSON object or array")
	notify := flag.Bool("notify", false, "send as a notification and do not wait for a reply")
	timeout := flag.Duration("timeout", 30*time.Second, "how long to wait for the reply")
	flag.Parse()

	if err := run(*url, *method, *params, *notify, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			if len(rpcErr.Data) > 0 {
				printJSON(os.Stderr, rpcErr.Data)
			}
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(url, method, params string, notify bool, timeout time.Duration) error {
	var p interface{}
	if params != "" {
		raw := json.RawMessage(params)
		if !json.Valid(raw) {
			return fmt.Errorf("params is not valid JSON: %s", params)
		}
		p = raw
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c := client.New(url)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	if notify {
		return c.Notify(ctx, method, p)
	}

	var result json.RawMessage
	if err := c.Call(ctx, method, p, &result); err != nil {
		return err
	}
	printJSON(os.Stdout, result)
	return nil
}

func printJSON(f *os.File, raw json.RawMessage) {
	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		fmt.Fprintln(f, string(raw))
		return
	}
	fmt.Fprintln(f, string(out))
}
