package models

// Participant is a live connection's identity as presented by the client.
// It is not verified against an identity provider.
type Participant struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	// Via is the connection kind, e.g. "websocket" or "telegram".
	Via string `json:"via"`
}

// RoomPresence lists the connections currently joined to a team room.
// Rooms are never persisted; this is a point-in-time view.
type RoomPresence struct {
	TeamID       string        `json:"teamId"`
	Participants []Participant `json:"participants"`
}
