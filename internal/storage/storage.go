// Package storage is the relational store (gorm) plus the Redis-backed search cache.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hackmate/backend/internal/config"
	"hackmate/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MessageStore is the durable, append-only message table used by the relay.
type MessageStore interface {
	// ListMessages returns a team's messages, oldest first.
	ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error)
	// CreateMessage persists msg. ID, TeamID, Sender, Body and CreatedAt must be set.
	CreateMessage(ctx context.Context, msg *models.TeamMessage) error
}

// UserStore backs the credentials login.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// IdeaStore backs the idea and flowchart endpoints.
type IdeaStore interface {
	ListIdeas(ctx context.Context, userID string) ([]models.Idea, error)
	CreateIdea(ctx context.Context, idea *models.Idea) error
}

// ProfileStore backs team formation.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile *models.TeamProfile) error
	GetProfile(ctx context.Context, id uint) (*models.TeamProfile, error)
	ListProfiles(ctx context.Context) ([]models.TeamProfile, error)
}

// Storage is everything the HTTP layer needs.
type Storage interface {
	MessageStore
	UserStore
	IdeaStore
	ProfileStore
	Migrate(ctx context.Context) error
}

// Service implements Storage on gorm. Redis is optional and only used for caching.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Open connects the configured gorm dialector.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// Migrate creates or updates every table.
func (s *Service) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	return nil
}

// ListMessages returns a team's history in insertion order.
func (s *Service) ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error) {
	messages := make([]models.TeamMessage, 0)
	err := s.DB.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("seq asc").
		Find(&messages).Error
	if err != nil {
		return nil, wrap("list messages", err)
	}
	return messages, nil
}

// CreateMessage inserts msg. A repeated (team, id) pair yields ErrConflict.
func (s *Service) CreateMessage(ctx context.Context, msg *models.TeamMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return wrap("create message", err)
	}
	return nil
}

// CreateUser inserts a new account. Duplicate emails yield ErrConflict.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return wrap("create user", s.DB.WithContext(ctx).Create(user).Error)
}

// FindUserByEmail returns ErrNotFound when no account matches.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}
