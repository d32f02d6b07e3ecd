package app

import (
	"context"
	"testing"
	"time"

	"social_chat_sync/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, op domain.EventOp, m domain.Message) []byte {
	t.Helper()
	b, err := domain.EncodeEvent(op, domain.ToWireRecord(m))
	require.NoError(t, err)
	return b
}

func newTestMultiplexer(open *domain.ConversationKey, repo *MockMessageRepository) (*Multiplexer, *Store, *MockEventStream) {
	store := NewStore("alice")
	conv := &ConversationContext{}
	if open != nil {
		conv.Set(*open)
	}
	stream := new(MockEventStream)

	var readUC *ReadStateUseCase
	if repo != nil {
		readUC = NewReadStateUseCase(store, repo)
	}
	return NewMultiplexer(store, stream, conv, readUC), store, stream
}

func TestMultiplexer_StartOnceStopIdempotent(t *testing.T) {
	mux, _, stream := newTestMultiplexer(nil, nil)

	sub := NewMockSubscription()
	sub.On("Close").Return(nil).Once()
	stream.On("Subscribe", mock.Anything, "alice").Return(sub, nil).Once()

	require.NoError(t, mux.Start(context.Background(), "alice"))
	assert.ErrorIs(t, mux.Start(context.Background(), "alice"), domain.ErrAlreadyStarted)

	mux.Stop()
	mux.Stop()

	sub.AssertNumberOfCalls(t, "Close", 1)
	stream.AssertNumberOfCalls(t, "Subscribe", 1)
}

func TestMultiplexer_StopBeforeStart(t *testing.T) {
	mux, _, _ := newTestMultiplexer(nil, nil)
	assert.NotPanics(t, mux.Stop)
}

func TestMultiplexer_StartRejectsOtherActor(t *testing.T) {
	mux, _, stream := newTestMultiplexer(nil, nil)
	assert.ErrorIs(t, mux.Start(context.Background(), "bob"), domain.ErrInvalidInput)
	stream.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
}

func TestMultiplexer_DispatchMalformed(t *testing.T) {
	open := domain.PeerKey("bob")
	mux, store, _ := newTestMultiplexer(&open, nil)
	var changes int
	store.OnChange(func(domain.ConversationKey) { changes++ })

	for _, payload := range []string{
		`{not json`,
		`{"op":"upsert","record":{"id":"m1"}}`,
		`{"op":"insert"}`,
		`{"op":"insert","record":{"id":"m1","sender_id":"bob","created_at":"yesterday","receiver_id":"alice"}}`,
	} {
		err := mux.Dispatch(context.Background(), []byte(payload))
		assert.ErrorIs(t, err, domain.ErrMalformedEvent, payload)
	}
	assert.Zero(t, changes)
}

func TestMultiplexer_CrossConversationIsolation(t *testing.T) {
	ctx := context.Background()
	open := domain.PeerKey("bob")
	repo := new(MockMessageRepository)
	repo.On("MarkRead", ctx, []string{"m2"}).Return(nil).Once()
	mux, store, _ := newTestMultiplexer(&open, repo)

	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpInsert, direct("m1", "carol", "alice", 1))))
	assert.Empty(t, store.Load(open))
	assert.Empty(t, store.Load(domain.PeerKey("carol")))

	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpInsert, direct("m2", "bob", "alice", 2))))
	view := store.Load(open)
	require.Equal(t, []string{"m2"}, ids(view))
	assert.Equal(t, domain.StatusRead, view[0].Status)

	// duplicate insert is absorbed
	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpInsert, direct("m2", "bob", "alice", 2))))
	assert.Len(t, store.Load(open), 1)

	repo.AssertExpectations(t)
}

func TestMultiplexer_NothingOpen(t *testing.T) {
	mux, store, _ := newTestMultiplexer(nil, nil)
	require.NoError(t, mux.Dispatch(context.Background(), encode(t, domain.OpInsert, direct("m1", "bob", "alice", 1))))
	assert.Empty(t, store.Load(domain.PeerKey("bob")))
}

func TestMultiplexer_OwnInsertSkipsReadSync(t *testing.T) {
	ctx := context.Background()
	open := domain.PeerKey("bob")
	repo := new(MockMessageRepository)
	mux, store, _ := newTestMultiplexer(&open, repo)

	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpInsert, direct("m1", "alice", "bob", 1))))
	m, ok := store.Get("m1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusSent, m.Status)
	repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestMultiplexer_UpdateReplacesReactions(t *testing.T) {
	ctx := context.Background()
	open := domain.GroupKey("g1")
	mux, store, _ := newTestMultiplexer(&open, nil)

	m := group("m1", "alice", "g1", 1)
	m.Reactions = domain.Reactions{"👍": {"alice"}}
	store.Append(m)

	updated := m
	updated.Reactions = domain.Reactions{"🎉": {"bob"}}
	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpUpdate, updated)))

	got, _ := store.Get("m1")
	assert.Equal(t, domain.Reactions{"🎉": {"bob"}}, got.Reactions)

	cleared := m
	cleared.Reactions = nil
	cleared.IsRead = true
	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpUpdate, cleared)))

	got, _ = store.Get("m1")
	assert.Empty(t, got.Reactions)
	assert.True(t, got.IsRead)
	assert.Equal(t, domain.StatusRead, got.Status)
}

func TestMultiplexer_Delete(t *testing.T) {
	ctx := context.Background()
	open := domain.PeerKey("bob")
	mux, store, _ := newTestMultiplexer(&open, nil)
	store.Append(direct("m1", "bob", "alice", 1))
	store.Append(direct("m2", "alice", "bob", 2))
	store.Append(direct("x1", "carol", "alice", 3))

	require.NoError(t, mux.Dispatch(ctx, encode(t, domain.OpDelete, direct("m1", "bob", "alice", 1))))
	require.NoError(t, mux.Dispatch(ctx, []byte(`{"op":"DELETE","record":{"id":"m2"}}`)))
	assert.Empty(t, store.Load(open))

	// key-only delete for a message outside the open conversation
	require.NoError(t, mux.Dispatch(ctx, []byte(`{"op":"delete","record":{"id":"x1"}}`)))
	assert.Len(t, store.Load(domain.PeerKey("carol")), 1)
}

func TestMultiplexer_DeleteWithPartialRecord(t *testing.T) {
	ctx := context.Background()
	open := domain.PeerKey("bob")
	mux, store, _ := newTestMultiplexer(&open, nil)
	store.Append(direct("m1", "bob", "alice", 1))

	// id and created_at only, no sender
	require.NoError(t, mux.Dispatch(ctx, []byte(`{"op":"delete","record":{"id":"m1","created_at":"2025-01-23T08:00:01Z"}}`)))
	assert.Empty(t, store.Load(open))
}

func TestMultiplexer_LoopAppliesEvents(t *testing.T) {
	open := domain.PeerKey("bob")
	mux, store, stream := newTestMultiplexer(&open, nil)

	sub := NewMockSubscription()
	sub.On("Close").Return(nil)
	stream.On("Subscribe", mock.Anything, "alice").Return(sub, nil)

	require.NoError(t, mux.Start(context.Background(), "alice"))
	defer mux.Stop()

	sub.Feed <- []byte(`garbage`)
	sub.Feed <- encode(t, domain.OpInsert, direct("m1", "bob", "alice", 1))
	sub.Feed <- encode(t, domain.OpInsert, direct("m2", "alice", "bob", 2))

	assert.Eventually(t, func() bool {
		return len(store.Load(open)) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"m1", "m2"}, ids(store.Load(open)))
}

func TestMultiplexer_LoopExitsWhenFeedCloses(t *testing.T) {
	mux, _, stream := newTestMultiplexer(nil, nil)

	sub := NewMockSubscription()
	sub.On("Close").Return(nil)
	stream.On("Subscribe", mock.Anything, "alice").Return(sub, nil)

	require.NoError(t, mux.Start(context.Background(), "alice"))
	close(sub.Feed)

	done := make(chan struct{})
	go func() {
		mux.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
