package models

import "time"

// TeamProfile describes a participant looking for teammates.
type TeamProfile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Role         string    `gorm:"not null;index" json:"role"`
	TechStack    string    `gorm:"type:text" json:"techStack"`
	Skills       string    `gorm:"type:text" json:"skills"`
	Availability []string  `gorm:"type:text;serializer:json" json:"availability"`
	LookingFor   []string  `gorm:"type:text;serializer:json" json:"lookingFor"`
	GithubRepo   string    `json:"githubRepo,omitempty"`
	DiscordLink  string    `json:"discordLink,omitempty"`
}

// TeamMatch is a scored candidate for a profile.
type TeamMatch struct {
	Profile TeamProfile `json:"profile"`
	Score   int         `json:"score"`
	Reasons []string    `json:"reasons"`
}
