// ABOUTME: Dispatcher turning raw JSON-RPC messages into encoded replies
// ABOUTME: Handles batches in parallel, id correlation, rpc. extensions, and error mapping

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/harper/jsonrpcd/internal/config"
	rpcerrors "github.com/harper/jsonrpcd/internal/errors"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
	"github.com/harper/jsonrpcd/internal/logger"
	"golang.org/x/sync/errgroup"
)

// CancelMethod is the extension that cancels an in-flight request by id.
const CancelMethod = "rpc.cancel"

type Options struct {
	MaxBatchSize   int // 0 means unlimited
	MaxConcurrency int
	HandlerTimeout time.Duration
	RateLimit      float64 // calls per second, 0 disables
	RateBurst      int
}

func OptionsFromConfig(cfg config.DispatchConfig) Options {
	return Options{
		MaxBatchSize:   cfg.MaxBatchSize,
		MaxConcurrency: cfg.MaxConcurrency,
		HandlerTimeout: cfg.HandlerTimeout,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}
}

// extension is an rpc. method provided by the dispatcher itself. It sees the
// session so it can act on other requests of the same connection.
type extension func(ctx context.Context, sess *Session, req *jsonrpc.Request) (interface{}, error)

type Dispatcher struct {
	registry   *Registry
	opts       Options
	wrap       Middleware
	extensions map[string]extension
	stats      *Stats
	log        logger.Component
}

func New(registry *Registry, opts Options) *Dispatcher {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}

	middlewares := []Middleware{Logging()}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		middlewares = append(middlewares, RateLimit(opts.RateLimit, burst))
	}
	middlewares = append(middlewares, Timeout(opts.HandlerTimeout))

	d := &Dispatcher{
		registry: registry,
		opts:     opts,
		wrap:     Chain(middlewares...),
		stats:    newStats(),
		log:      logger.For("DISPATCH", ""),
	}
	d.extensions = map[string]extension{
		CancelMethod: d.cancelRequest,
	}
	return d
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

func (d *Dispatcher) Stats() StatsSnapshot { return d.stats.Snapshot() }

// Extensions lists the rpc. methods served by the dispatcher.
func (d *Dispatcher) Extensions() []string {
	return []string{CancelMethod}
}

// Handle processes one raw message from sess and returns the encoded reply.
// A nil reply means nothing must be sent back: the message held only
// notifications.
func (d *Dispatcher) Handle(ctx context.Context, sess *Session, raw []byte) ([]byte, error) {
	entries, batch := jsonrpc.DecodeMessage(raw)

	if batch && d.opts.MaxBatchSize > 0 && len(entries) > d.opts.MaxBatchSize {
		d.log.Warn("rejecting batch of %d from session %s (limit %d)", len(entries), logger.Short(sess.ID), d.opts.MaxBatchSize)
		resp := jsonrpc.NewErrorResponse(jsonrpc.NullID(), rpcerrors.NewBatchTooLargeError(len(entries), d.opts.MaxBatchSize))
		d.stats.record(nil, resp)
		return jsonrpc.EncodeResponses([]*jsonrpc.Response{resp}, false)
	}

	responses := make([]*jsonrpc.Response, len(entries))
	seen := make(map[jsonrpc.ID]bool, len(entries))

	type task struct {
		index  int
		req    *jsonrpc.Request
		ctx    context.Context
		cancel context.CancelFunc
	}
	var calls, extensions []task

	// Every id is registered before anything runs, so an rpc.cancel can
	// find any call of the same batch.
	for i, entry := range entries {
		if entry.Err != nil {
			responses[i] = jsonrpc.NewErrorResponse(entry.ID, rpcerrors.FromEntry(entry))
			d.stats.record(nil, responses[i])
			continue
		}

		req := entry.Request
		callCtx, cancel := context.WithCancel(ctx)

		if !req.IsNotification() {
			id := *req.ID
			duplicate := !id.IsNull() && seen[id]
			seen[id] = true
			if duplicate || !sess.begin(id, cancel) {
				cancel()
				responses[i] = jsonrpc.NewErrorResponse(id, rpcerrors.NewDuplicateIDError(id))
				d.stats.record(req, responses[i])
				continue
			}
		}

		t := task{index: i, req: req, ctx: callCtx, cancel: cancel}
		if _, ok := d.extensions[req.Method]; ok {
			extensions = append(extensions, t)
		} else {
			calls = append(calls, t)
		}
	}

	run := func(t task) {
		defer t.cancel()
		if !t.req.IsNotification() {
			defer sess.end(*t.req.ID)
		}

		resp := d.call(t.ctx, sess, t.req)
		d.stats.record(t.req, resp)
		if t.req.IsNotification() {
			if resp.Error != nil {
				d.log.Debug("notification %s failed: %v", t.req.Method, resp.Error)
			}
			return
		}
		responses[t.index] = resp
	}

	// Extensions only act on the session and skip the concurrency limit;
	// otherwise a cancel could wait behind the very call it targets.
	var extWG sync.WaitGroup
	for _, t := range extensions {
		t := t
		extWG.Add(1)
		go func() {
			defer extWG.Done()
			run(t)
		}()
	}

	var g errgroup.Group
	g.SetLimit(d.opts.MaxConcurrency)
	for _, t := range calls {
		t := t
		g.Go(func() error {
			run(t)
			return nil
		})
	}

	_ = g.Wait()
	extWG.Wait()

	out := make([]*jsonrpc.Response, 0, len(responses))
	for _, resp := range responses {
		if resp != nil {
			out = append(out, resp)
		}
	}
	return jsonrpc.EncodeResponses(out, batch)
}

func (d *Dispatcher) call(ctx context.Context, sess *Session, req *jsonrpc.Request) *jsonrpc.Response {
	id := jsonrpc.NullID()
	if req.ID != nil {
		id = *req.ID
	}

	var (
		result interface{}
		err    error
	)

	if ext, ok := d.extensions[req.Method]; ok {
		result, err = ext(ctx, sess, req)
	} else if req.IsReserved() {
		err = rpcerrors.NewReservedMethodError(req.Method)
	} else if h, ok := d.registry.Lookup(req.Method); ok {
		result, err = d.wrap(h)(ctx, req)
	} else {
		err = rpcerrors.NewMethodNotFoundError(req.Method, d.registry.Methods())
	}

	if err != nil {
		return jsonrpc.NewErrorResponse(id, d.toRPCError(id, req.Method, err))
	}

	resp, err := jsonrpc.NewResponse(id, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(id, rpcerrors.NewInternalError(err.Error()))
	}
	return resp
}

func (d *Dispatcher) toRPCError(id jsonrpc.ID, method string, err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	switch {
	case errors.As(err, &rpcErr):
		if _, classifyErr := jsonrpc.Classify(rpcErr.Code); classifyErr != nil {
			d.log.Warn("method %s returned %v; passing it through", method, classifyErr)
		}
		return rpcErr
	case errors.Is(err, context.DeadlineExceeded):
		return rpcerrors.NewTimeoutError(method, d.opts.HandlerTimeout)
	case errors.Is(err, context.Canceled):
		return rpcerrors.NewCancelledError(id)
	default:
		return rpcerrors.NewInternalError(err.Error())
	}
}

func (d *Dispatcher) cancelRequest(_ context.Context, sess *Session, req *jsonrpc.Request) (interface{}, error) {
	raw := cancelTarget(req.Params)
	if raw == nil {
		return nil, rpcerrors.NewInvalidParamsError("id", "string or non-negative integer", string(req.Params))
	}

	var target jsonrpc.ID
	if err := target.UnmarshalJSON(raw); err != nil || target.IsNull() {
		return nil, rpcerrors.NewInvalidParamsError("id", "string or non-negative integer", string(raw))
	}

	cancelled := sess.Cancel(target)
	d.log.Debug("session %s cancel %s: found=%v", logger.Short(sess.ID), target, cancelled)
	return map[string]interface{}{"cancelled": cancelled}, nil
}

// cancelTarget accepts both {"id": x} and [x].
func cancelTarget(params json.RawMessage) json.RawMessage {
	var named struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(params, &named) == nil && named.ID != nil {
		return named.ID
	}

	var positional []json.RawMessage
	if json.Unmarshal(params, &positional) == nil && len(positional) == 1 {
		return positional[0]
	}
	return nil
}
