package models

import "time"

// TeamMessage is one chat message in a team room.
// Rows are append-only: nothing in the relay updates or deletes them.
type TeamMessage struct {
	// Seq is the insertion sequence and gives a stable oldest-first order.
	Seq uint `gorm:"primaryKey;autoIncrement" json:"-"`

	// ID is assigned by the client (optimistic send) or by the relay, unique per team.
	ID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_team_message_id" json:"id"`
	// TeamID is the room the message belongs to.
	TeamID string `gorm:"type:varchar(128);not null;uniqueIndex:idx_team_message_id;index:idx_team_created" json:"teamId"`
	// Sender is the opaque participant identifier presented by the client.
	Sender string `gorm:"type:varchar(128);not null" json:"sender"`
	// SenderName is an optional display name.
	SenderName string `gorm:"type:varchar(255)" json:"senderName,omitempty"`
	// Body is the message text, never empty.
	Body string `gorm:"column:message;type:text;not null" json:"message"`
	// CreatedAt is assigned at send time.
	CreatedAt time.Time `gorm:"not null;index:idx_team_created" json:"createdAt"`
}

// TableName keeps the table name stable across renames of the Go type.
func (TeamMessage) TableName() string { return "team_messages" }
