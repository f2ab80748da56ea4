// ABOUTME: Method registry mapping JSON-RPC method names to handlers
// ABOUTME: Refuses empty, duplicate, and rpc.-reserved names; supports aliases

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

// Handler executes one request. Returning a *jsonrpc.Error sends it as is;
// any other error becomes an Internal error.
type Handler func(ctx context.Context, req *jsonrpc.Request) (interface{}, error)

var (
	ErrEmptyMethod     = errors.New("method name must not be empty")
	ErrReservedMethod  = errors.New("method names beginning with rpc. are reserved")
	ErrDuplicateMethod = errors.New("method already registered")
	ErrUnknownMethod   = errors.New("method not registered")
)

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		aliases:  make(map[string]string),
	}
}

func (r *Registry) checkName(name string) error {
	if name == "" {
		return ErrEmptyMethod
	}
	if jsonrpc.IsReservedMethod(name) {
		return fmt.Errorf("%w: %s", ErrReservedMethod, name)
	}
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
	}
	if _, ok := r.aliases[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
	}
	return nil
}

// Register adds a handler under name.
func (r *Registry) Register(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkName(name); err != nil {
		return err
	}
	r.handlers[name] = h
	return nil
}

// Alias makes alias resolve to the handler registered as target.
func (r *Registry) Alias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkName(alias); err != nil {
		return err
	}
	if _, ok := r.handlers[target]; !ok {
		return fmt.Errorf("%w: alias %s points at %s", ErrUnknownMethod, alias, target)
	}
	r.aliases[alias] = target
	return nil
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Methods returns every callable name, aliases included, sorted.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers)+len(r.aliases))
	for name := range r.handlers {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers) + len(r.aliases)
}
