package app

import (
	"context"
	"fmt"
	"sync"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/internal/chat/repository"
	"social_chat_sync/pkg/logger"

	"go.uber.org/zap"
)

// Multiplexer 單一訂閱: one stream subscription per session, drained by a single
// dispatcher goroutine that applies events in arrival order
type Multiplexer struct {
	store     *Store
	stream    repository.EventStream
	conv      *ConversationContext
	readState *ReadStateUseCase

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	sub     repository.Subscription
	done    chan struct{}
	stop    sync.Once
}

// NewMultiplexer create Multiplexer. readState may be nil.
func NewMultiplexer(store *Store, stream repository.EventStream, conv *ConversationContext, readState *ReadStateUseCase) *Multiplexer {
	return &Multiplexer{
		store:     store,
		stream:    stream,
		conv:      conv,
		readState: readState,
	}
}

// Start subscribes once for actorID and launches the dispatcher
func (m *Multiplexer) Start(ctx context.Context, actorID string) error {
	if actorID == "" || actorID != m.store.ActorID() {
		return fmt.Errorf("%w: subscription actor %q", domain.ErrInvalidInput, actorID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return domain.ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	sub, err := m.stream.Subscribe(loopCtx, actorID)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", actorID, err)
	}

	m.started = true
	m.cancel = cancel
	m.sub = sub
	m.done = make(chan struct{})

	go m.loop(loopCtx, sub, m.done)

	logger.Log.Info("event stream subscribed", zap.String("actor", actorID))
	return nil
}

// Stop tears the subscription down once and waits for the dispatcher to exit
func (m *Multiplexer) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return
	}

	m.stop.Do(func() {
		m.cancel()
		if err := m.sub.Close(); err != nil {
			logger.Log.Warn("close subscription", zap.Error(err))
		}
		<-m.done
		logger.Log.Info("event stream unsubscribed", zap.String("actor", m.store.ActorID()))
	})
}

func (m *Multiplexer) loop(ctx context.Context, sub repository.Subscription, done chan struct{}) {
	defer close(done)

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			_ = m.Dispatch(ctx, payload)
		}
	}
}

// Dispatch decodes and applies one raw payload. Malformed payloads are logged and dropped;
// the returned error is informational.
func (m *Multiplexer) Dispatch(ctx context.Context, payload []byte) error {
	actorID := m.store.ActorID()
	log := logger.Log.With(zap.String("actor", actorID))

	evt, err := domain.DecodeEvent(payload)
	if err != nil {
		log.Warn("drop malformed event", zap.Error(err), zap.ByteString("payload", truncate(payload, 256)))
		return err
	}

	open := m.conv.Ptr()
	if open == nil {
		return nil
	}

	if evt.Op == domain.OpDelete {
		// delete 只看 id：以本地快取判斷所屬對話
		if key, ok := m.store.ConversationOf(evt.Record.ID); ok && key == *open {
			m.store.Apply(ApplyRemoteDelete{ID: evt.Record.ID})
		}
		return nil
	}

	msg, err := evt.Record.ToMessage()
	if err != nil {
		log.Warn("drop malformed event", zap.Error(err), zap.String("id", evt.Record.ID))
		return err
	}
	if !IsRelevant(msg, actorID, open) {
		return nil
	}

	switch evt.Op {
	case domain.OpInsert:
		inserted := m.store.Apply(ApplyRemoteInsert{Message: msg})
		if inserted && msg.SenderID != actorID && !msg.IsRead && m.readState != nil {
			// 失敗只記錄，不影響後續事件
			_ = m.readState.SyncReadState(ctx, *open, actorID)
		}

	case domain.OpUpdate:
		m.store.Apply(ApplyRemoteUpdate{ID: msg.ID, Patch: remotePatch(msg)})
	}
	return nil
}

// remotePatch reactions replace wholesale; the read flag only moves forward
func remotePatch(msg domain.Message) domain.MessagePatch {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = domain.Reactions{}
	}
	patch := domain.MessagePatch{Reactions: reactions}
	if msg.IsRead {
		read := domain.ReadPatch()
		patch.IsRead, patch.Status = read.IsRead, read.Status
	}
	return patch
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
