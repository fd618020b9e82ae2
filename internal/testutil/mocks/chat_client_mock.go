package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/haleth/cardchat/internal/chat"
)

// MockChatClient is a mock implementation of chat.Client
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Send(ctx context.Context, req chat.Request) (*chat.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Response), args.Error(1)
}
