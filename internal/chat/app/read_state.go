package app

import (
	"context"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/internal/chat/repository"
	errprocess "social_chat_sync/pkg/err"
	"social_chat_sync/pkg/logger"

	"go.uber.org/zap"
)

// ReadStateUseCase 將目前對話中的未讀訊息標記為已讀
type ReadStateUseCase struct {
	store   *Store
	msgRepo repository.MessageRepository
}

// NewReadStateUseCase create ReadStateUseCase
func NewReadStateUseCase(store *Store, msgRepo repository.MessageRepository) *ReadStateUseCase {
	return &ReadStateUseCase{
		store:   store,
		msgRepo: msgRepo,
	}
}

// SyncReadState marks every inbound unread message in key as read with one batched call.
// The store only changes after the backend accepted the batch. Errors are logged and
// returned; callers are expected not to surface them.
func (uc *ReadStateUseCase) SyncReadState(ctx context.Context, key domain.ConversationKey, actorID string) error {
	ids := uc.store.UnreadInbound(key, actorID)
	if len(ids) == 0 {
		return nil
	}

	if err := uc.msgRepo.MarkRead(ctx, ids); err != nil {
		return errprocess.Wrap(err, "mark read %s", key)
	}

	uc.store.Apply(MarkRead{IDs: ids})
	logger.Log.Debug("conversation marked read", zap.String("conversation", key.String()), zap.Int("count", len(ids)))
	return nil
}
