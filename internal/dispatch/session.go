// ABOUTME: Per-connection dispatch session tracking in-flight request ids
// ABOUTME: Enforces one in-flight request per id and supports cancellation by id

package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

// Session is the dispatch state of one transport connection. Null ids are
// not tracked: they cannot be correlated, so they cannot be cancelled or
// collide.
type Session struct {
	ID string

	mu       sync.Mutex
	inflight map[jsonrpc.ID]context.CancelFunc
}

// NewSession creates a session. An empty id gets a fresh uuid.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:       id,
		inflight: make(map[jsonrpc.ID]context.CancelFunc),
	}
}

// begin records id as in flight. It reports false when the id is already
// in flight on this session.
func (s *Session) begin(id jsonrpc.ID, cancel context.CancelFunc) bool {
	if id.IsNull() {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = cancel
	return true
}

func (s *Session) end(id jsonrpc.ID) {
	if id.IsNull() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// Cancel cancels the in-flight request with id. It reports whether such a
// request existed.
func (s *Session) Cancel(id jsonrpc.ID) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[id]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// CancelAll cancels every in-flight request, e.g. when the connection closes.
func (s *Session) CancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.inflight))
	for _, cancel := range s.inflight {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// InFlight returns the number of tracked requests.
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
