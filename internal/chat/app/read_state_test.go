package app

import (
	"context"
	"errors"
	"testing"

	"social_chat_sync/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReadStateUseCase_NothingUnread(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	store.Append(direct("m1", "alice", "bob", 1))

	mockMsgRepo := new(MockMessageRepository)
	uc := NewReadStateUseCase(store, mockMsgRepo)

	assert.NoError(t, uc.SyncReadState(ctx, domain.PeerKey("bob"), "alice"))
	mockMsgRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestReadStateUseCase_MarksInboundOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	store.Append(direct("m1", "bob", "alice", 1))
	store.Append(direct("m2", "alice", "bob", 2))
	store.Append(direct("m3", "bob", "alice", 3))

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("MarkRead", ctx, []string{"m1", "m3"}).Return(nil).Once()

	uc := NewReadStateUseCase(store, mockMsgRepo)
	key := domain.PeerKey("bob")

	assert.NoError(t, uc.SyncReadState(ctx, key, "alice"))
	assert.NoError(t, uc.SyncReadState(ctx, key, "alice"))

	view := store.Load(key)
	assert.True(t, view[0].IsRead)
	assert.Equal(t, domain.StatusRead, view[0].Status)
	assert.False(t, view[1].IsRead, "own message untouched")
	assert.True(t, view[2].IsRead)

	mockMsgRepo.AssertExpectations(t)
}

func TestReadStateUseCase_FailureLeavesStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	store.Append(direct("m1", "bob", "alice", 1))

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("MarkRead", ctx, []string{"m1"}).Return(errors.New("offline"))

	uc := NewReadStateUseCase(store, mockMsgRepo)
	assert.Error(t, uc.SyncReadState(ctx, domain.PeerKey("bob"), "alice"))

	m, _ := store.Get("m1")
	assert.False(t, m.IsRead)
}
