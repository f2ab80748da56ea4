// ABOUTME: WebSocket JSON-RPC client for jsonrpcd and compatible servers
// ABOUTME: Correlates responses to calls by id; supports notifications and batches

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
	"github.com/harper/jsonrpcd/internal/logger"
)

var (
	ErrClosed           = errors.New("client closed")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// DialTimeout bounds Connect.
const DialTimeout = 30 * time.Second

// writeWait bounds a single write to the server.
const writeWait = 10 * time.Second

// outbound is a queued message; the write loop reports the write result on
// result so send returns only once the message is on the wire.
type outbound struct {
	data   []byte
	result chan error
}

type Client struct {
	url  string
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[jsonrpc.ID]chan *jsonrpc.Response
	closed  bool

	outgoing chan outbound
	done     chan struct{}
	closeErr error

	// batchSlot admits one Batch at a time: a batch rejected as a whole is
	// answered with a null id, so only one may be waiting for that answer.
	batchSlot chan struct{}
	batchWait chan *jsonrpc.Response

	nextID uint64
	log    logger.Component
}

func New(url string) *Client {
	return &Client{
		url:      url,
		pending:  make(map[jsonrpc.ID]chan *jsonrpc.Response),
		outgoing:  make(chan outbound, 100),
		done:      make(chan struct{}),
		batchSlot: make(chan struct{}, 1),
		log:       logger.For("CLIENT", ""),
	}
}

// Connect dials the server and starts the read and write loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil) //nolint:bodyclose // websocket connection, not HTTP response
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.conn = conn

	go c.readLoop()
	go c.writeLoop()

	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Close shuts the connection down. Calls still waiting fail with ErrClosed.
func (c *Client) Close() error {
	return c.shutdown(nil)
}

func (c *Client) shutdown(cause error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.closeErr = cause
	c.pending = make(map[jsonrpc.ID]chan *jsonrpc.Response)
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	// Best effort: the peer may already be gone.
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}

// Err reports why the connection ended, or nil if it is open or was closed
// by Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Call sends method with params and decodes the result into result, which
// may be nil. An error response is returned as *jsonrpc.Error. When ctx ends
// first, the server is asked to cancel the call.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	id := c.newID()
	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ch, err := c.register(id)
	if err != nil {
		return err
	}

	if err := c.send(ctx, data); err != nil {
		c.unregister(id)
		return err
	}

	select {
	case resp := <-ch:
		return decodeResult(resp, result)
	case <-ctx.Done():
		c.unregister(id)
		c.cancelRemote(id)
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Notify sends a notification. No response is expected; it returns once the
// notification has been written, so a following Close does not lose it.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	req, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return c.send(ctx, data)
}

// BatchCall is one element of a batch. After Batch returns, Err holds the
// outcome of a call; Result, when non-nil, has been decoded into.
type BatchCall struct {
	Method string
	Params interface{}
	Result interface{}
	Notify bool
	Err    error

	id jsonrpc.ID
	ch chan *jsonrpc.Response
}

// Batch sends calls as one batch and waits for every non-notification
// response. The returned error covers the batch as a whole, e.g. when the
// server rejects it outright. Batches on one client run one at a time.
func (c *Client) Batch(ctx context.Context, calls []*BatchCall) error {
	if len(calls) == 0 {
		return errors.New("empty batch")
	}

	select {
	case c.batchSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
	defer func() { <-c.batchSlot }()

	rejected := make(chan *jsonrpc.Response, 1)
	c.mu.Lock()
	c.batchWait = rejected
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.batchWait = nil
		c.mu.Unlock()
	}()

	reqs := make([]*jsonrpc.Request, 0, len(calls))
	var registered []jsonrpc.ID
	cleanup := func() {
		for _, id := range registered {
			c.unregister(id)
		}
	}

	for _, call := range calls {
		var (
			req *jsonrpc.Request
			err error
		)
		if call.Notify {
			req, err = jsonrpc.NewNotification(call.Method, call.Params)
		} else {
			call.id = c.newID()
			req, err = jsonrpc.NewRequest(call.id, call.Method, call.Params)
		}
		if err != nil {
			cleanup()
			return err
		}

		if !call.Notify {
			call.ch, err = c.register(call.id)
			if err != nil {
				cleanup()
				return err
			}
			registered = append(registered, call.id)
		}
		reqs = append(reqs, req)
	}

	data, err := json.Marshal(reqs)
	if err != nil {
		cleanup()
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := c.send(ctx, data); err != nil {
		cleanup()
		return err
	}

	for i, call := range calls {
		if call.Notify {
			continue
		}
		select {
		case resp := <-call.ch:
			call.Err = decodeResult(resp, call.Result)
		case resp := <-rejected:
			cleanup()
			if resp.Error != nil {
				return resp.Error
			}
			return errors.New("uncorrelated response to batch")
		case <-ctx.Done():
			cleanup()
			c.cancelRemote(unanswered(calls[i:])...)
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		}
	}
	return nil
}

func unanswered(calls []*BatchCall) []jsonrpc.ID {
	var ids []jsonrpc.ID
	for _, call := range calls {
		if !call.Notify && len(call.ch) == 0 {
			ids = append(ids, call.id)
		}
	}
	return ids
}

func decodeResult(resp *jsonrpc.Response, result interface{}) error {
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (c *Client) newID() jsonrpc.ID {
	return jsonrpc.NumberID(atomic.AddUint64(&c.nextID, 1))
}

func (c *Client) register(id jsonrpc.ID) (chan *jsonrpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	ch := make(chan *jsonrpc.Response, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *Client) unregister(id jsonrpc.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// cancelRemote tells the server to stop working on ids, as one batch of
// notifications when there are several. Errors are ignored: the caller has
// already given up on the responses.
func (c *Client) cancelRemote(ids ...jsonrpc.ID) {
	if len(ids) == 0 {
		return
	}

	notes := make([]*jsonrpc.Request, 0, len(ids))
	for _, id := range ids {
		note, err := jsonrpc.NewNotification("rpc.cancel", map[string]jsonrpc.ID{"id": id})
		if err != nil {
			c.log.Debug("failed to build cancel for %s: %v", id, err)
			return
		}
		notes = append(notes, note)
	}

	var payload interface{} = notes
	if len(notes) == 1 {
		payload = notes[0]
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Debug("failed to encode cancel: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.send(ctx, data); err != nil {
		c.log.Debug("failed to send cancel for %d calls: %v", len(ids), err)
	}
}

func (c *Client) send(ctx context.Context, msg []byte) error {
	if !c.IsConnected() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return ErrClosed
		}
		return ErrNotConnected
	}

	out := outbound{data: msg, result: make(chan error, 1)}
	select {
	case c.outgoing <- out:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}

	select {
	case err := <-out.result:
		return err
	case <-c.done:
		// The write may have finished just before the client closed.
		select {
		case err := <-out.result:
			return err
		default:
			return ErrClosed
		}
	}
}

func (c *Client) deliver(resp *jsonrpc.Response) {
	if resp.ID.IsNull() {
		c.mu.Lock()
		waiting := c.batchWait
		c.mu.Unlock()

		if waiting != nil {
			select {
			case waiting <- resp:
				return
			default:
			}
		}
		c.log.Warn("dropping uncorrelated response: %v", resp.Error)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if !ok {
		c.log.Debug("response for unknown id %s", resp.ID)
		return
	}
	ch <- resp
}

func (c *Client) readLoop() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				_ = c.shutdown(fmt.Errorf("read: %w", err))
			}
			return
		}

		responses, skipped, err := parseResponses(msg)
		if err != nil {
			c.log.Warn("ignoring malformed message: %v", err)
			continue
		}
		if skipped > 0 {
			c.log.Warn("ignoring %d malformed responses", skipped)
		}
		for _, resp := range responses {
			c.deliver(resp)
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				err = fmt.Errorf("write: %w", err)
				msg.result <- err
				_ = c.shutdown(err)
				return
			}
			msg.result <- nil
		}
	}
}

// parseResponses decodes a single response or a batch of them. Elements
// that are not JSON-RPC 2.0 response objects, such as null, are dropped and
// counted in skipped.
func parseResponses(msg []byte) (responses []*jsonrpc.Response, skipped int, err error) {
	trimmed := bytes.TrimSpace(msg)

	var decoded []*jsonrpc.Response
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &decoded); err != nil {
			return nil, 0, err
		}
	} else {
		var resp jsonrpc.Response
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, 0, err
		}
		decoded = []*jsonrpc.Response{&resp}
	}

	for _, resp := range decoded {
		if resp == nil || resp.JSONRPC != jsonrpc.Version {
			skipped++
			continue
		}
		responses = append(responses, resp)
	}
	return responses, skipped, nil
}
