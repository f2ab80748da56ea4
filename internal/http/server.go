// ABOUTME: HTTP server exposing the JSON-RPC dispatcher at POST /rpc
// ABOUTME: Each HTTP request is its own dispatch session

package http

import (
	"net/http"

	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/dispatch"
)

// Path is where the JSON-RPC endpoint is mounted.
const Path = "/rpc"

type Server struct {
	dispatcher   *dispatch.Dispatcher
	db           *db.DB
	maxBodyBytes int64
	mux          *http.ServeMux
}

// NewServer builds the HTTP transport. database may be nil to disable the
// traffic log.
func NewServer(d *dispatch.Dispatcher, database *db.DB, maxBodyBytes int64) *Server {
	s := &Server{
		dispatcher:   d,
		db:           database,
		maxBodyBytes: maxBodyBytes,
		mux:          http.NewServeMux(),
	}

	s.mux.HandleFunc(Path, s.handleRPC)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
