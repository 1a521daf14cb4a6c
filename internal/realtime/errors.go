package realtime

import "errors"

var (
	// ErrAuth rejects a handshake with a bad or missing token. The
	// connection is refused before anything is registered.
	ErrAuth = errors.New("authentication failed")

	// ErrNotAParticipant rejects a join or send on a conversation the
	// identity does not belong to. The connection stays alive.
	ErrNotAParticipant = errors.New("not a participant of this conversation")

	// ErrNotSender rejects an edit or delete issued by someone other than
	// the message's author.
	ErrNotSender = errors.New("not the sender of this message")

	// ErrPersistFailure means the store rejected a write. Nothing was
	// broadcast; the client should retry explicitly.
	ErrPersistFailure = errors.New("persist failure")

	// ErrNotFound means the referenced message or conversation is unknown.
	ErrNotFound = errors.New("not found")

	// ErrProtocol means the event payload was malformed.
	ErrProtocol = errors.New("protocol error")

	// ErrConnClosed is returned by Send on a closed connection.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned by Send when the outbound queue is
	// full; the hub treats the connection as dead.
	ErrSendBufferFull = errors.New("send buffer full")
)

// errorCode maps an error to the wire code carried by the error event.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth_error"
	case errors.Is(err, ErrNotAParticipant):
		return "not_a_participant"
	case errors.Is(err, ErrNotSender):
		return "forbidden"
	case errors.Is(err, ErrPersistFailure):
		return "persist_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProtocol):
		return "protocol_error"
	default:
		return "internal_error"
	}
}
