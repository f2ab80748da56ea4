// ABOUTME: Database package for logging JSON-RPC traffic to SQLite
// ABOUTME: Tracks transport connections and every message in and out of them

package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/harper/jsonrpcd/internal/logger"
	"github.com/harper/jsonrpcd/internal/xdg"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	conn *sql.DB
}

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// Open opens or creates the SQLite database
func Open(dbPath string) (*DB, error) {
	if err := xdg.EnsureParent("XDG_DATA_HOME", dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode so the inspector can read while the server writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Database initialized at %s", dbPath)
	return &DB{conn: conn}, nil
}

// OpenReadOnly opens an existing database without creating or migrating it.
func OpenReadOnly(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// OpenConnection records a new transport connection.
func (db *DB) OpenConnection(connectionID, transport, remoteAddr string) error {
	_, err := db.conn.Exec(
		"INSERT INTO connections (id, transport, remote_addr) VALUES (?, ?, ?)",
		connectionID, transport, remoteAddr,
	)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	return nil
}

// CloseConnection marks a connection as closed
func (db *DB) CloseConnection(connectionID string) error {
	_, err := db.conn.Exec(
		"UPDATE connections SET closed_at = CURRENT_TIMESTAMP WHERE id = ?",
		connectionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// LogMessage logs a message with direction and parsed details
func (db *DB) LogMessage(connectionID string, direction MessageDirection, rawMessage []byte) error {
	info := Describe(rawMessage)

	_, err := db.conn.Exec(
		`INSERT INTO messages (connection_id, direction, message_type, method, jsonrpc_id, id_kind, error_code, error_category, raw_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		connectionID, direction, info.Type, nullString(info.Method), nullString(info.ID), nullString(info.IDKind),
		info.ErrorCode, nullString(info.ErrorCategory), string(rawMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}
	return nil
}

const messageColumns = `id, connection_id, direction, message_type, method, jsonrpc_id, id_kind, error_code, error_category, raw_message, timestamp`

// GetConnectionMessages retrieves all messages for a connection, oldest first
func (db *DB) GetConnectionMessages(connectionID string) ([]Message, error) {
	rows, err := db.conn.Query(
		`SELECT `+messageColumns+` FROM messages WHERE connection_id = ? ORDER BY id ASC`,
		connectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetRecentMessages returns the newest limit messages across all
// connections, newest first.
func (db *DB) GetRecentMessages(limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		`SELECT `+messageColumns+` FROM messages ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		var messageType, method, jsonrpcID, idKind, errorCategory sql.NullString
		var errorCode sql.NullInt64

		err := rows.Scan(&m.ID, &m.ConnectionID, &m.Direction, &messageType, &method, &jsonrpcID, &idKind,
			&errorCode, &errorCategory, &m.RawMessage, &m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		m.MessageType = messageType.String
		m.Method = method.String
		m.JSONRPCID = jsonrpcID.String
		m.IDKind = idKind.String
		m.ErrorCategory = errorCategory.String
		if errorCode.Valid {
			code := int(errorCode.Int64)
			m.ErrorCode = &code
		}

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// Message represents a logged message
type Message struct {
	ID            int64            `json:"id"`
	ConnectionID  string           `json:"connection_id"`
	Direction     MessageDirection `json:"direction"`
	MessageType   string           `json:"message_type"`
	Method        string           `json:"method,omitempty"`
	JSONRPCID     string           `json:"jsonrpc_id,omitempty"`
	IDKind        string           `json:"id_kind,omitempty"`
	ErrorCode     *int             `json:"error_code,omitempty"`
	ErrorCategory string           `json:"error_category,omitempty"`
	RawMessage    string           `json:"raw_message"`
	Timestamp     time.Time        `json:"timestamp"`
}

// GetAllConnections retrieves all connections, newest first
func (db *DB) GetAllConnections() ([]Connection, error) {
	return db.GetRecentConnections(-1)
}

// GetRecentConnections returns up to limit connections, newest first. A
// negative limit returns all of them.
func (db *DB) GetRecentConnections(limit int) ([]Connection, error) {
	rows, err := db.conn.Query(
		`SELECT c.id, c.transport, c.remote_addr, c.opened_at, c.closed_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.connection_id = c.id)
		 FROM connections c ORDER BY c.opened_at DESC, c.rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var connections []Connection
	for rows.Next() {
		var c Connection
		var remoteAddr sql.NullString
		var closedAt sql.NullTime

		err := rows.Scan(&c.ID, &c.Transport, &remoteAddr, &c.OpenedAt, &closedAt, &c.MessageCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}

		c.RemoteAddr = remoteAddr.String
		if closedAt.Valid {
			c.ClosedAt = &closedAt.Time
		}

		connections = append(connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read connections: %w", err)
	}

	return connections, nil
}

// Connection represents a logged transport connection
type Connection struct {
	ID           string     `json:"id"`
	Transport    string     `json:"transport"`
	RemoteAddr   string     `json:"remote_addr,omitempty"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	MessageCount int        `json:"message_count"`
}

func (c Connection) IsOpen() bool { return c.ClosedAt == nil }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
