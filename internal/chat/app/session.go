package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/internal/chat/repository"
	errprocess "social_chat_sync/pkg/err"
	"social_chat_sync/pkg/logger"

	"go.uber.org/zap"
)

// ErrSessionClosed Start called after Close
var ErrSessionClosed = errors.New("session closed")

// Dependencies collaborators shared by every session
type Dependencies struct {
	Messages repository.MessageRepository
	Stream   repository.EventStream
	// Media optional
	Media repository.MediaResolver
}

// SessionOption optional session setting
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	clock Clock
}

// WithClock overrides the provisional timestamp source
func WithClock(c Clock) SessionOption {
	return func(o *sessionOptions) {
		o.clock = c
	}
}

// Session 登入後的同步上下文，登出時關閉
type Session struct {
	actorID string
	store   *Store
	conv    *ConversationContext

	sendUC     *SendMessageUseCase
	readUC     *ReadStateUseCase
	reactionUC *ReactionUseCase
	mux        *Multiplexer
	msgRepo    repository.MessageRepository

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// NewSession wire store, use cases and multiplexer for actorID
func NewSession(actorID string, deps Dependencies, opts ...SessionOption) (*Session, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor id is required", domain.ErrInvalidInput)
	}
	if deps.Messages == nil || deps.Stream == nil {
		return nil, fmt.Errorf("%w: message repository and event stream are required", domain.ErrInvalidInput)
	}

	o := sessionOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	store := NewStore(actorID)
	conv := &ConversationContext{}
	readUC := NewReadStateUseCase(store, deps.Messages)

	return &Session{
		actorID:    actorID,
		store:      store,
		conv:       conv,
		sendUC:     NewSendMessageUseCase(store, deps.Messages, deps.Media, o.clock),
		readUC:     readUC,
		reactionUC: NewReactionUseCase(store, deps.Messages),
		mux:        NewMultiplexer(store, deps.Stream, conv, readUC),
		msgRepo:    deps.Messages,
	}, nil
}

// ActorID signed-in actor
func (s *Session) ActorID() string {
	return s.actorID
}

// Start opens the realtime subscription
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return s.mux.Start(ctx, s.actorID)
}

// Close stops the subscription; safe to call more than once
func (s *Session) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.mux.Stop()
		s.conv.Clear()
	})
}

// SetCurrentConversation switches the open conversation, hydrates it from persistence
// and marks inbound messages read
func (s *Session) SetCurrentConversation(ctx context.Context, key domain.ConversationKey) error {
	if key.ID == "" {
		return fmt.Errorf("%w: empty conversation", domain.ErrInvalidInput)
	}
	s.conv.Set(key)
	checkpoint := s.store.Checkpoint()

	msgs, err := s.msgRepo.ListMessages(ctx, key, s.actorID)
	if err != nil {
		return errprocess.Wrap(err, "hydrate %s", key)
	}
	// 重新開啟時以列表為準，補上關閉期間錯過的刪除與更新
	s.store.Apply(HydrateConversation{Key: key, Messages: msgs, Checkpoint: checkpoint})

	if err := s.readUC.SyncReadState(ctx, key, s.actorID); err != nil {
		logger.Log.Warn("read state sync on open failed", zap.String("conversation", key.String()), zap.Error(err))
		return err
	}
	return nil
}

// CurrentConversation open conversation, ok=false when none
func (s *Session) CurrentConversation() (domain.ConversationKey, bool) {
	return s.conv.Get()
}

// ClearCurrentConversation stop routing stream events to any view
func (s *Session) ClearCurrentConversation() {
	s.conv.Clear()
}

// Send optimistic send into key
func (s *Session) Send(ctx context.Context, key domain.ConversationKey, content, mediaRef string) (domain.Message, error) {
	return s.sendUC.Execute(ctx, key, content, mediaRef)
}

// Delete removes a persisted message
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.sendUC.DeleteMessage(ctx, id)
}

// ToggleReaction toggles the actor's emoji on messageID
func (s *Session) ToggleReaction(ctx context.Context, messageID, emoji string) (domain.Reactions, error) {
	return s.reactionUC.ToggleReaction(ctx, messageID, emoji, s.actorID)
}

// SyncReadState marks the open conversation read; no-op when nothing is open
func (s *Session) SyncReadState(ctx context.Context) error {
	key, ok := s.conv.Get()
	if !ok {
		return nil
	}
	return s.readUC.SyncReadState(ctx, key, s.actorID)
}

// Load ordered view of key
func (s *Session) Load(key domain.ConversationKey) []domain.Message {
	return s.store.Load(key)
}

// OnChange subscribe to view changes; returns the unsubscribe func
func (s *Session) OnChange(fn ChangeListener) func() {
	return s.store.OnChange(fn)
}

// Dispatch feeds one raw event through the multiplexer (synthetic feeds, tests)
func (s *Session) Dispatch(ctx context.Context, payload []byte) error {
	return s.mux.Dispatch(ctx, payload)
}
