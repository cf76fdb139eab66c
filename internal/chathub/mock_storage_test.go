package chathub_test

import (
	"context"

	"hackmate/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]models.TeamMessage), args.Error(1)
}

func (m *MockStore) CreateMessage(ctx context.Context, msg *models.TeamMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
