// ABOUTME: Handler middleware for logging, rate limiting, and timeouts
// ABOUTME: Middlewares compose with Chain; the first listed runs outermost

package dispatch

import (
	"context"
	"time"

	rpcerrors "github.com/harper/jsonrpcd/internal/errors"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
	"github.com/harper/jsonrpcd/internal/logger"
	"golang.org/x/time/rate"
)

type Middleware func(next Handler) Handler

// Chain combines middlewares into one.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Logging records method, id, duration, and failure of each call.
func Logging() Middleware {
	log := logger.For("DISPATCH", "")
	return func(next Handler) Handler {
		return func(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, req)
			id := "-"
			if req.ID != nil {
				id = req.ID.String()
			}
			if err != nil {
				log.Debug("method=%s id=%s duration=%s error=%v", req.Method, id, time.Since(start), err)
			} else {
				log.Debug("method=%s id=%s duration=%s", req.Method, id, time.Since(start))
			}
			return result, err
		}
	}
}

// RateLimit rejects calls beyond r per second with bursts of burst, using a
// token bucket shared by every caller of the handler.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Handler) Handler {
		return func(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
			if !limiter.Allow() {
				return nil, rpcerrors.NewRateLimitedError(req.Method)
			}
			return next(ctx, req)
		}
	}
}

// Timeout bounds each call. The call returns as soon as its context ends,
// even if the handler ignores ctx; a timeout of zero only applies the
// cancellation part.
func Timeout(timeout time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			type outcome struct {
				result interface{}
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				result, err := next(ctx, req)
				done <- outcome{result, err}
			}()

			select {
			case o := <-done:
				return o.result, o.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}
