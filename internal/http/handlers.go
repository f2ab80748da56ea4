// ABOUTME: HTTP handler for JSON-RPC requests
// ABOUTME: Reads one message per request body and writes the dispatcher's reply

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/dispatch"
	rpcerrors "github.com/harper/jsonrpcd/internal/errors"
	"github.com/harper/jsonrpcd/internal/jsonrpc"
	"github.com/harper/jsonrpcd/internal/logger"
)

// Transport is the name recorded for HTTP connections in the traffic log.
const Transport = "http"

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := dispatch.NewSession("")
	log := logger.For("HTTP", sess.ID)

	if s.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	defer func() { _ = r.Body.Close() }()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("request body exceeds %d bytes", tooLarge.Limit)
			writeRPCError(w, http.StatusRequestEntityTooLarge,
				rpcerrors.NewInvalidRequestError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		writeRPCError(w, http.StatusBadRequest, rpcerrors.NewInvalidRequestError(fmt.Sprintf("failed to read body: %v", err)))
		return
	}

	s.openConnection(sess.ID, r.RemoteAddr)
	defer s.closeConnection(sess.ID)
	s.logMessage(sess.ID, db.DirectionInbound, body)

	// The request context ends when the client goes away, which cancels
	// every call still running for it.
	reply, err := s.dispatcher.Handle(r.Context(), sess, body)
	if err != nil {
		log.Error("failed to encode reply: %v", err)
		writeRPCError(w, http.StatusInternalServerError, rpcerrors.NewInternalError(err.Error()))
		return
	}

	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.logMessage(sess.ID, db.DirectionOutbound, reply)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors still return 200
	if _, err := w.Write(reply); err != nil {
		log.Error("error writing response: %v", err)
	}
}

func (s *Server) openConnection(id, remoteAddr string) {
	if s.db == nil {
		return
	}
	if err := s.db.OpenConnection(id, Transport, remoteAddr); err != nil {
		logger.For("HTTP", id).Warn("failed to record connection: %v", err)
	}
}

func (s *Server) closeConnection(id string) {
	if s.db == nil {
		return
	}
	if err := s.db.CloseConnection(id); err != nil {
		logger.For("HTTP", id).Warn("failed to close connection record: %v", err)
	}
}

func (s *Server) logMessage(id string, direction db.MessageDirection, msg []byte) {
	if s.db == nil {
		return
	}
	if err := s.db.LogMessage(id, direction, msg); err != nil {
		logger.For("HTTP", id).Warn("failed to log %s message: %v", direction, err)
	}
}

// writeRPCError answers a request the dispatcher never saw.
func writeRPCError(w http.ResponseWriter, status int, rpcErr *jsonrpc.Error) {
	data, err := jsonrpc.NewErrorResponse(jsonrpc.NullID(), rpcErr).MarshalJSON()
	if err != nil {
		http.Error(w, rpcErr.Message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Error("error writing error response: %v", err)
	}
}
