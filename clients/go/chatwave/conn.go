package chatwave

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Event is a frame received from the server. Payload decoding is left to
// the caller since the server-to-client set is open-ended.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is an authenticated realtime connection. Methods are not safe for
// concurrent use; run Next in one goroutine and writes in another only if
// externally serialized.
type Conn struct {
	ws *websocket.Conn
}

// Connect opens the realtime websocket using the client's bearer token.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	wsURL := c.BaseURL + "/ws"
	if strings.HasPrefix(wsURL, "https://") {
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	} else {
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.Token)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &APIError{Status: resp.StatusCode, Message: "websocket handshake failed"}
		}
		return nil, err
	}
	if resp != nil {
		resp.Body.Close()
	}
	return &Conn{ws: ws}, nil
}

// Next blocks until the server delivers the next event.
func (c *Conn) Next() (*Event, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// JoinRoom subscribes the connection to a conversation's events.
func (c *Conn) JoinRoom(conversationID string) error {
	return c.send("join-room", map[string]string{"conversationId": conversationID})
}

// LeaveRoom unsubscribes the connection from a conversation.
func (c *Conn) LeaveRoom(conversationID string) error {
	return c.send("leave-room", map[string]string{"conversationId": conversationID})
}

// SendMessage posts a message to a conversation. Either content or
// mediaRef may be empty, not both.
func (c *Conn) SendMessage(conversationID, content, mediaRef string) error {
	payload := map[string]string{"conversationId": conversationID}
	if content != "" {
		payload["content"] = content
	}
	if mediaRef != "" {
		payload["mediaRef"] = mediaRef
	}
	return c.send("send-message", payload)
}

// EditMessage replaces the content of a message the caller sent.
func (c *Conn) EditMessage(messageID, content string) error {
	return c.send("edit-message", map[string]string{"messageId": messageID, "content": content})
}

// DeleteMessage soft-deletes a message the caller sent.
func (c *Conn) DeleteMessage(messageID string) error {
	return c.send("delete-message", map[string]string{"messageId": messageID})
}

// Typing toggles the caller's typing indicator in a conversation.
func (c *Conn) Typing(conversationID string, isTyping bool) error {
	return c.send("typing", map[string]any{"conversationId": conversationID, "isTyping": isTyping})
}

// MarkRead records a read receipt for a message.
func (c *Conn) MarkRead(messageID string) error {
	return c.send("read-receipt", map[string]string{"messageId": messageID})
}

// Close closes the websocket. The server flips presence once the last
// connection for the user is gone.
func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) send(eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: raw})
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
