// ABOUTME: WebSocket server for bidirectional JSON-RPC communication
// ABOUTME: Each connection is a dispatch session; replies go through a single writer

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harper/jsonrpcd/internal/db"
	"github.com/harper/jsonrpcd/internal/dispatch"
	"github.com/harper/jsonrpcd/internal/logger"
)

// Transport is the name recorded for WebSocket connections in the traffic log.
const Transport = "websocket"

// outboxSize bounds replies queued for a slow client before handlers block.
const outboxSize = 64

// DefaultMaxInFlight applies when Options.MaxInFlight is not set.
const DefaultMaxInFlight = 8

type Options struct {
	// AllowedOrigins empty, or containing "*", accepts any origin.
	AllowedOrigins []string
	// MaxMessageBytes caps one inbound message; 0 means unlimited.
	MaxMessageBytes int64
	// MaxInFlight caps messages dispatched at once per connection.
	MaxInFlight int
}

type connection struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
}

type Server struct {
	dispatcher *dispatch.Dispatcher
	db         *db.DB
	opts       Options
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	conns   map[string]*connection
	closing bool
	active  sync.WaitGroup
}

// NewServer builds the WebSocket transport. database may be nil.
func NewServer(d *dispatch.Dispatcher, database *db.DB, opts Options) *Server {
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	s := &Server{
		dispatcher: d,
		db:         database,
		opts:       opts,
		conns:      make(map[string]*connection),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(opts.AllowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(origin, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients do not send an Origin header.
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.active.Add(1)
	s.mu.Unlock()
	defer s.active.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	s.handleConnection(conn, r.RemoteAddr)
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every client, cancelling their in-flight calls, and
// waits until all connection handlers have finished their cleanup. New
// connections are refused from then on.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	open := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		open = append(open, c)
	}
	s.mu.Unlock()

	for _, c := range open {
		c.cancel()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = c.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(id string, c *connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[id] = c
	return true
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

func (s *Server) handleConnection(conn *websocket.Conn, remoteAddr string) {
	defer conn.Close()

	if s.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.opts.MaxMessageBytes)
	}

	sess := dispatch.NewSession("")
	log := logger.For("WS", sess.ID)

	// Closing the connection cancels the context and with it every call
	// still running for this session.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !s.track(sess.ID, &connection{conn: conn, cancel: cancel}) {
		return
	}
	defer s.untrack(sess.ID)

	log.Info("client connected from %s", remoteAddr)

	if s.db != nil {
		if err := s.db.OpenConnection(sess.ID, Transport, remoteAddr); err != nil {
			log.Warn("failed to record connection: %v", err)
		}
		defer func() {
			if err := s.db.CloseConnection(sess.ID); err != nil {
				log.Warn("failed to close connection record: %v", err)
			}
		}()
	}

	outbox := make(chan []byte, outboxSize)
	writerDone := make(chan struct{})

	// Goroutine: the only writer on conn
	go func() {
		defer close(writerDone)
		for msg := range outbox {
			s.logMessage(sess.ID, db.DirectionOutbound, msg)
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("websocket write error: %v", err)
				cancel()
				// Keep draining so handlers never block on a dead client.
				for range outbox {
				}
				return
			}
		}
	}()

	// A fixed pool of workers dispatches messages; at most MaxInFlight more
	// wait in the queue. Once both are full the read loop stops reading
	// until a call finishes.
	queue := make(chan []byte, s.opts.MaxInFlight)
	var handlers sync.WaitGroup
	for i := 0; i < s.opts.MaxInFlight; i++ {
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			for message := range queue {
				s.handleMessage(ctx, sess, message, outbox)
			}
		}()
	}

	// Main loop: Read from WebSocket
read:
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				log.Warn("message exceeds %d bytes, closing connection", s.opts.MaxMessageBytes)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				log.Warn("websocket read error: %v", err)
			}
			break
		}

		s.logMessage(sess.ID, db.DirectionInbound, message)

		if isCancel(message) {
			handlers.Add(1)
			go func() {
				defer handlers.Done()
				s.handleMessage(ctx, sess, message, outbox)
			}()
			continue
		}

		select {
		case queue <- message:
		case <-ctx.Done():
			break read
		}
	}

	cancel()
	sess.CancelAll()
	close(queue)
	handlers.Wait()
	close(outbox)
	<-writerDone

	log.Info("client disconnected")
}

func (s *Server) handleMessage(ctx context.Context, sess *dispatch.Session, message []byte, outbox chan<- []byte) {
	reply, err := s.dispatcher.Handle(ctx, sess, message)
	if err != nil {
		logger.For("WS", sess.ID).Error("failed to encode reply: %v", err)
		return
	}
	if reply != nil {
		outbox <- reply
	}
}

// isCancel reports whether message is a single rpc.cancel request. Those
// bypass the in-flight limit so a client can still cancel a call while
// every slot is busy.
func isCancel(message []byte) bool {
	var head struct {
		Method string `json:"method"`
	}
	return json.Unmarshal(message, &head) == nil && head.Method == dispatch.CancelMethod
}

func (s *Server) logMessage(id string, direction db.MessageDirection, msg []byte) {
	if s.db == nil {
		return
	}
	if err := s.db.LogMessage(id, direction, msg); err != nil {
		logger.For("WS", id).Warn("failed to log %s message: %v", direction, err)
	}
}
