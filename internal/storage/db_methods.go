package storage

import (
	"context"
	"strings"

	"hackmate/backend/internal/models"

	"gorm.io/gorm/clause"
)

// ListIdeas returns ideas newest first, optionally filtered by owner.
func (s *Service) ListIdeas(ctx context.Context, userID string) ([]models.Idea, error) {
	ideas := make([]models.Idea, 0)
	q := s.DB.WithContext(ctx).Order("created_at desc, id desc")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&ideas).Error; err != nil {
		return nil, wrap("list ideas", err)
	}
	return ideas, nil
}

// CreateIdea inserts idea and fills its ID and CreatedAt.
func (s *Service) CreateIdea(ctx context.Context, idea *models.Idea) error {
	return wrap("create idea", s.DB.WithContext(ctx).Create(idea).Error)
}

// UpsertProfile inserts a profile or replaces the one with the same email.
// On return profile holds the stored row, including its ID.
func (s *Service) UpsertProfile(ctx context.Context, profile *models.TeamProfile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	profile.ID = 0

	db := s.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "role", "tech_stack", "skills", "availability",
			"looking_for", "github_repo", "discord_link",
		}),
	}).Create(profile).Error
	if err != nil {
		return wrap("upsert profile", err)
	}

	// Re-read: the id returned by an ON CONFLICT update is driver dependent.
	var stored models.TeamProfile
	if err := db.Where("email = ?", profile.Email).First(&stored).Error; err != nil {
		return wrap("upsert profile", err)
	}
	*profile = stored
	return nil
}

// GetProfile returns ErrNotFound when the id is unknown.
func (s *Service) GetProfile(ctx context.Context, id uint) (*models.TeamProfile, error) {
	var profile models.TeamProfile
	if err := s.DB.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, wrap("get profile", err)
	}
	return &profile, nil
}

// ListProfiles returns every profile ordered by id.
func (s *Service) ListProfiles(ctx context.Context) ([]models.TeamProfile, error) {
	profiles := make([]models.TeamProfile, 0)
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&profiles).Error; err != nil {
		return nil, wrap("list profiles", err)
	}
	return profiles, nil
}
