package app

import (
	"context"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/internal/chat/repository"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// CreateMessage moke create message
func (m *MockMessageRepository) CreateMessage(ctx context.Context, msg domain.NewMessage) (domain.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(domain.Message), args.Error(1)
}

// UpdateMessage moke update reactions / read flag
func (m *MockMessageRepository) UpdateMessage(ctx context.Context, id string, patch domain.MessagePatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// DeleteMessage moke delete message
func (m *MockMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ListMessages moke conversation history
func (m *MockMessageRepository) ListMessages(ctx context.Context, key domain.ConversationKey, actorID string) ([]domain.Message, error) {
	args := m.Called(ctx, key, actorID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead moke batched read
func (m *MockMessageRepository) MarkRead(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockEventStream Mock EventStream
type MockEventStream struct {
	mock.Mock
}

// Subscribe moke subscriber
func (m *MockEventStream) Subscribe(ctx context.Context, actorID string) (repository.Subscription, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) != nil {
		return args.Get(0).(repository.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSubscription Mock Subscription; tests push payloads into Feed
type MockSubscription struct {
	mock.Mock
	Feed chan []byte
}

// NewMockSubscription buffered feed
func NewMockSubscription() *MockSubscription {
	return &MockSubscription{Feed: make(chan []byte, 16)}
}

// Events moke events channel
func (m *MockSubscription) Events() <-chan []byte {
	return m.Feed
}

// Close moke close
func (m *MockSubscription) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMediaResolver Mock MediaResolver
type MockMediaResolver struct {
	mock.Mock
}

// ResolveMediaURL moke presign
func (m *MockMediaResolver) ResolveMediaURL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}
