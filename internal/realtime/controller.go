package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/metrics"
)

// Open runs the handshake for a freshly upgraded websocket: verify the
// bearer token, register the connection, start the pumps. A failed
// verification closes the socket with an auth error and registers nothing;
// there is no partial session.
func (h *Hub) Open(ctx context.Context, ws *websocket.Conn, token string) (*WSConn, error) {
	user, err := h.verifier.Verify(ctx, token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("handshake rejected")
		ws.WriteMessage(websocket.TextMessage, Encode(EventError, ErrorPayload{
			Code:    errorCode(ErrAuth),
			Message: "authentication failed",
		}))
		ws.Close()
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	conn := newWSConn(ws, user, h)
	h.admit(ctx, conn)
	conn.start()

	h.logger.Info().
		Stringer("conn_id", conn.ID()).
		Stringer("user_id", user.ID).
		Str("username", user.Username).
		Msg("connection open")

	return conn, nil
}

// admit registers a connection and fires the presence edge if it is the
// user's first.
func (h *Hub) admit(ctx context.Context, conn Conn) {
	first := h.registry.Register(conn)
	metrics.ConnectionsActive.Inc()

	if first {
		metrics.UsersOnline.Inc()
		h.presence.HandleOnline(ctx, conn.User())
	}
}

// release undoes admit: leaves every room, deregisters, and fires the
// offline presence edge when the user's last connection goes. Safe to call
// repeatedly; only the first call for a registered connection does work.
func (h *Hub) release(conn Conn) {
	h.rooms.LeaveAll(conn)

	removed, last := h.registry.Deregister(conn)
	if !removed {
		return
	}
	metrics.ConnectionsActive.Dec()

	if last {
		metrics.UsersOnline.Dec()
		h.presence.HandleOffline(context.Background(), conn.User())
		h.logger.Info().
			Stringer("conn_id", conn.ID()).
			Stringer("user_id", conn.User().ID).
			Msg("user offline")
	}
}

// dispatch routes one inbound frame through the closed event set. A
// malformed payload is a protocol error reported back to the sender; the
// connection stays alive. A panicking handler is converted into a generic
// error event plus teardown of that connection only.
func (h *Hub) dispatch(conn Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Interface("panic", r).
				Stringer("conn_id", conn.ID()).
				Msg("event handler fault")
			h.sendError(conn, nil, "internal error")
			conn.Close()
		}
	}()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.sendError(conn, ErrProtocol, "malformed event")
		return
	}

	metrics.EventsReceived.WithLabelValues(string(env.Type)).Inc()

	// Disconnect mid-operation must not cancel a persist already issued, so
	// handlers do not run under the connection's lifetime.
	ctx := context.Background()

	switch env.Type {
	case EventJoinRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed join-room payload")
			return
		}
		if err := h.rooms.Join(ctx, conn, p.ConversationID); err != nil {
			h.sendError(conn, err, err.Error())
			return
		}
		h.send(conn, Encode(EventRoomJoined, JoinRoomPayload{ConversationID: p.ConversationID}))

	case EventLeaveRoom:
		var p LeaveRoomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed leave-room payload")
			return
		}
		h.rooms.Leave(conn, p.ConversationID)
		h.send(conn, Encode(EventRoomLeft, LeaveRoomPayload{ConversationID: p.ConversationID}))

	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed send-message payload")
			return
		}
		if _, err := h.relay.Send(ctx, conn, p.ConversationID, p.Content, p.MediaRef); err != nil {
			h.sendError(conn, err, err.Error())
		}

	case EventEditMessage:
		var p EditMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed edit-message payload")
			return
		}
		if _, err := h.relay.Edit(ctx, conn, p.MessageID, p.Content); err != nil {
			h.sendError(conn, err, err.Error())
		}

	case EventDeleteMsg:
		var p DeleteMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed delete-message payload")
			return
		}
		if _, err := h.relay.Delete(ctx, conn, p.MessageID); err != nil {
			h.sendError(conn, err, err.Error())
		}

	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed typing payload")
			return
		}
		h.typing.SetTyping(conn, p.ConversationID, p.IsTyping)

	case EventReadReceipt:
		var p ReadReceiptPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(conn, ErrProtocol, "malformed read-receipt payload")
			return
		}
		if _, err := h.receipts.MarkRead(ctx, conn, p.MessageID); err != nil {
			h.sendError(conn, err, err.Error())
		}

	default:
		h.sendError(conn, ErrProtocol, fmt.Sprintf("unknown event type %q", env.Type))
	}
}

// send delivers a frame to one connection, closing it if it is dead.
func (h *Hub) send(conn Conn, data []byte) {
	if err := conn.Send(data); err != nil {
		go conn.Close()
	}
}

// sendError reports a rejected operation to the issuing connection only.
func (h *Hub) sendError(conn Conn, err error, message string) {
	code := "internal_error"
	if err != nil {
		code = errorCode(err)
	}
	metrics.EventErrors.WithLabelValues(code).Inc()
	h.send(conn, Encode(EventError, ErrorPayload{Code: code, Message: message}))
}
