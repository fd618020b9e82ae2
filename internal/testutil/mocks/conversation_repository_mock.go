package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/haleth/cardchat/internal/models"
)

// MockConversationRepository is a mock implementation of repository.ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Load(ctx context.Context, cardID string) (models.Conversation, error) {
	args := m.Called(ctx, cardID)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) AppendTurn(ctx context.Context, cardID string, turn models.Turn) (models.Turn, error) {
	args := m.Called(ctx, cardID, turn)
	return args.Get(0).(models.Turn), args.Error(1)
}

func (m *MockConversationRepository) Clear(ctx context.Context, cardID string) error {
	args := m.Called(ctx, cardID)
	return args.Error(0)
}

func (m *MockConversationRepository) Exists(ctx context.Context, cardID string) (bool, error) {
	args := m.Called(ctx, cardID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationInfo, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConversationInfo), args.Error(1)
}

func (m *MockConversationRepository) DeleteNotIn(ctx context.Context, liveIDs []string) (int64, error) {
	args := m.Called(ctx, liveIDs)
	return args.Get(0).(int64), args.Error(1)
}
