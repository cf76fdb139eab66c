package models

// Relay event types. Client -> server: join, leave, send. Server -> client: new message, error.
const (
	EventJoinTeam    = "join-team"
	EventLeaveTeam   = "leave-team"
	EventSendMessage = "send-message"
	EventNewMessage  = "new-message"
	EventError       = "error"
)

// Error codes carried by EventError.
const (
	ErrorCodeValidation = "validation"
	ErrorCodeStorage    = "storage"
	ErrorCodeBadRequest = "bad-request"
)

// RelayEvent is the JSON envelope exchanged over a relay connection.
type RelayEvent struct {
	Type    string       `json:"type"`
	TeamID  string       `json:"teamId,omitempty"`
	Message *TeamMessage `json:"message,omitempty"`

	// Error fields, only set on EventError.
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// NewMessageEvent wraps a persisted message for broadcast.
func NewMessageEvent(msg TeamMessage) RelayEvent {
	return RelayEvent{Type: EventNewMessage, TeamID: msg.TeamID, Message: &msg}
}

// NewErrorEvent builds the error reply sent to the originating connection only.
func NewErrorEvent(code, text, messageID string) RelayEvent {
	return RelayEvent{Type: EventError, Code: code, Error: text, MessageID: messageID}
}
