// ABOUTME: Dispatch counters grouped by error category
// ABOUTME: Feeds the management health endpoint

package dispatch

import (
	"sync"

	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

type Stats struct {
	mu            sync.Mutex
	requests      uint64
	notifications uint64
	successes     uint64
	errors        map[string]uint64
}

func newStats() *Stats {
	return &Stats{errors: make(map[string]uint64)}
}

func (s *Stats) record(req *jsonrpc.Request, resp *jsonrpc.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req != nil && req.IsNotification() {
		s.notifications++
	} else {
		s.requests++
	}

	if resp == nil {
		return
	}
	if resp.Error == nil {
		s.successes++
		return
	}
	s.errors[resp.Error.Category().String()]++
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Requests      uint64            `json:"requests"`
	Notifications uint64            `json:"notifications"`
	Successes     uint64            `json:"successes"`
	Errors        map[string]uint64 `json:"errors"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make(map[string]uint64, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	return StatsSnapshot{
		Requests:      s.requests,
		Notifications: s.notifications,
		Successes:     s.successes,
		Errors:        errs,
	}
}
