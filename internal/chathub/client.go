package chathub

import "hackmate/backend/internal/models"

// Client is any live relay connection (WebSocket, Telegram chat).
// The hub only talks to a client through its send channel, so the transport
// behind it can be swapped without touching the relay.
type Client interface {
	// GetUserID returns the participant identifier presented by the connection.
	GetUserID() string
	// GetUserName returns the optional display name.
	GetUserName() string
	// Kind names the transport, e.g. "websocket" or "telegram".
	Kind() string

	// GetSendChannel returns the buffered channel the hub writes events to.
	// Only the hub goroutine sends on it and only Close closes it.
	GetSendChannel() chan<- models.RelayEvent

	// Run starts the read and write pumps.
	Run()
	// Close stops the write pump. It is called by the hub exactly once per
	// registered client.
	Close()
}

// participantOf builds the presence view of a client.
func participantOf(c Client) models.Participant {
	return models.Participant{UserID: c.GetUserID(), Name: c.GetUserName(), Via: c.Kind()}
}

// ConnState is the lifecycle of one connection as seen by the hub.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateJoinedRoom
	StateLeftRoom
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedRoom:
		return "joined"
	case StateLeftRoom:
		return "left"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
