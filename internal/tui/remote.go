// ABOUTME: HTTP client for the jsonrpcd management API
// ABOUTME: Lets the inspector read connections and messages from a running server
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harper/jsonrpcd/internal/db"
)

// ManagementSource reads the traffic log through /api/connections and
// /api/messages instead of opening the database file.
type ManagementSource struct {
	baseURL string
	client  *http.Client
}

func NewManagementSource(baseURL string) *ManagementSource {
	return &ManagementSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *ManagementSource) GetRecentConnections(limit int) ([]db.Connection, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}

	var connections []db.Connection
	if err := s.get("/api/connections", query, &connections); err != nil {
		return nil, fmt.Errorf("failed to fetch connections: %w", err)
	}
	return connections, nil
}

func (s *ManagementSource) GetConnectionMessages(connectionID string) ([]db.Message, error) {
	query := url.Values{"connection": {connectionID}, "limit": {"1000"}}

	var messages []db.Message
	if err := s.get("/api/messages", query, &messages); err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

func (s *ManagementSource) get(path string, query url.Values, v interface{}) error {
	resp, err := s.client.Get(s.baseURL + path + "?" + query.Encode())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
