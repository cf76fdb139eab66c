package models

import "time"

// Idea is a saved hackathon idea together with its flowchart source.
type Idea struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Flowchart   string    `gorm:"type:text;not null" json:"flowchart"`
	UserID      *string   `gorm:"index" json:"user_id"`
}
