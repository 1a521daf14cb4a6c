// Package chatwave provides a client for the ChatWave chat API and its
// realtime websocket protocol.
package chatwave

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a ChatWave API client. Token is the bearer token minted at
// registration; it is required for everything except Register, Health
// and Stats.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new ChatWave client.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatwave: %d %s", e.Status, e.Message)
}

// Message mirrors the server's message representation.
type Message struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversation_id"`
	SenderID       string   `json:"sender_id"`
	Content        string   `json:"content,omitempty"`
	MediaRef       string   `json:"media_ref,omitempty"`
	ReadBy         []string `json:"read_by,omitempty"`
	Edited         bool     `json:"edited,omitempty"`
	Deleted        bool     `json:"deleted,omitempty"`
	Timestamp      int64    `json:"ts"`
}

// Conversation mirrors the server's conversation representation.
// UnreadCount is only populated by ListConversations.
type Conversation struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	IsGroup       bool      `json:"is_group"`
	Name          string    `json:"name,omitempty"`
	GroupAdmin    string    `json:"group_admin,omitempty"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
	UnreadCount   int64     `json:"unreadCount,omitempty"`
}

// RegisterResponse is returned by Register. The token is shown exactly
// once; callers must store it.
type RegisterResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// HealthResponse is returned by Health.
type HealthResponse struct {
	Status    string                     `json:"status"`
	Version   string                     `json:"version"`
	Checks    map[string]json.RawMessage `json:"checks"`
	Timestamp string                     `json:"timestamp"`
}

// StatsResponse is returned by Stats.
type StatsResponse struct {
	Connections int    `json:"connections"`
	OnlineUsers int    `json:"online_users"`
	ActiveRooms int    `json:"active_rooms"`
	Timestamp   string `json:"timestamp"`
}

// PresenceResponse is returned by Presence.
type PresenceResponse struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// MessagesResponse is returned by GetMessages.
type MessagesResponse struct {
	ConversationID string    `json:"conversationId"`
	Messages       []Message `json:"messages"`
	Cached         bool      `json:"cached"`
}

// Register creates a user account and mints its bearer token.
func (c *Client) Register(username, email string) (*RegisterResponse, error) {
	var resp RegisterResponse
	body := map[string]string{"username": username}
	if email != "" {
		body["email"] = email
	}
	if err := c.do(http.MethodPost, "/register", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns the server health report.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns live hub counters.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.do(http.MethodGet, "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Presence reports whether a user is online, with last-seen when offline.
func (c *Client) Presence(userID string) (*PresenceResponse, error) {
	var resp PresenceResponse
	if err := c.do(http.MethodGet, "/api/presence/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateConversation starts a conversation. Direct conversations take
// exactly one other participant; group conversations take two or more
// plus a name.
func (c *Client) CreateConversation(participantIDs []string, isGroup bool, name string) (*Conversation, error) {
	var resp Conversation
	body := map[string]any{
		"participantIds": participantIDs,
		"isGroup":        isGroup,
	}
	if name != "" {
		body["name"] = name
	}
	if err := c.do(http.MethodPost, "/api/conversations", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations returns the caller's conversations, most recently
// active first.
func (c *Client) ListConversations(limit, offset int) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	path := fmt.Sprintf("/api/conversations?limit=%d&offset=%d", limit, offset)
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetConversation fetches a single conversation the caller participates in.
func (c *Client) GetConversation(id string) (*Conversation, error) {
	var resp Conversation
	if err := c.do(http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessages fetches message history for a conversation, newest page
// first. A non-zero before timestamp (Unix ms) pages backwards.
func (c *Client) GetMessages(conversationID string, limit int, before int64) (*MessagesResponse, error) {
	var resp MessagesResponse
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages?limit=" + strconv.Itoa(limit)
	if before > 0 {
		path += "&before=" + strconv.FormatInt(before, 10)
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
