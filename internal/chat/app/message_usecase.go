package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/internal/chat/repository"
	errprocess "social_chat_sync/pkg/err"
	"social_chat_sync/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock time source for provisional timestamps
type Clock func() time.Time

// SendMessageUseCase 負責樂觀送出訊息與刪除
type SendMessageUseCase struct {
	store   *Store
	msgRepo repository.MessageRepository
	media   repository.MediaResolver
	clock   Clock
}

// NewSendMessageUseCase init send message use case. media may be nil.
func NewSendMessageUseCase(store *Store, msgRepo repository.MessageRepository, media repository.MediaResolver, clock Clock) *SendMessageUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &SendMessageUseCase{
		store:   store,
		msgRepo: msgRepo,
		media:   media,
		clock:   clock,
	}
}

// Execute send message.
// 1. 先放入 provisional 訊息 (status sending)
// 2. 寫入 DB
// 3. 成功則換成 canonical，失敗則移除 provisional
func (uc *SendMessageUseCase) Execute(ctx context.Context, key domain.ConversationKey, content, mediaRef string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	mediaRef = strings.TrimSpace(mediaRef)
	if content == "" && mediaRef == "" {
		return domain.Message{}, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if key.ID == "" {
		return domain.Message{}, fmt.Errorf("%w: no conversation", domain.ErrInvalidInput)
	}

	actorID := uc.store.ActorID()
	provisional := domain.Message{
		ID:        domain.ProvisionalIDPrefix + uuid.New().String(),
		CreatedAt: uc.clock().UTC(),
		SenderID:  actorID,
		Content:   content,
		MediaRef:  mediaRef,
		Status:    domain.StatusSending,
	}
	if key.IsGroup {
		provisional.GroupID = key.ID
	} else {
		provisional.ReceiverID = key.ID
	}
	uc.store.Apply(SendCommand{Message: provisional})

	canonical, err := uc.persist(ctx, key, actorID, content, mediaRef)
	if err != nil {
		uc.store.Apply(DiscardProvisional{ProvisionalID: provisional.ID})
		logger.Log.Warn("send failed, provisional discarded",
			zap.String("provisional_id", provisional.ID),
			zap.String("conversation", key.String()),
			zap.Error(err),
		)
		return domain.Message{}, fmt.Errorf("%w: %w", domain.ErrSendFailed, err)
	}

	canonical.Status = domain.DeriveStatus(canonical, actorID)
	uc.store.Apply(ReconcileCanonical{ProvisionalID: provisional.ID, Canonical: canonical})
	return canonical, nil
}

func (uc *SendMessageUseCase) persist(ctx context.Context, key domain.ConversationKey, actorID, content, mediaRef string) (domain.Message, error) {
	if mediaRef != "" && uc.media != nil {
		url, err := uc.media.ResolveMediaURL(ctx, mediaRef)
		if err != nil {
			return domain.Message{}, fmt.Errorf("resolve media %s: %w", mediaRef, err)
		}
		mediaRef = url
	}

	return uc.msgRepo.CreateMessage(ctx, domain.NewMessage{
		Key:      key,
		SenderID: actorID,
		Content:  content,
		MediaRef: mediaRef,
	})
}

// DeleteMessage deletes a persisted message, then drops it locally
func (uc *SendMessageUseCase) DeleteMessage(ctx context.Context, id string) error {
	if id == "" || domain.IsProvisionalID(id) {
		return fmt.Errorf("%w: cannot delete %q", domain.ErrInvalidInput, id)
	}

	if err := uc.msgRepo.DeleteMessage(ctx, id); err != nil {
		return errprocess.Wrap(err, "delete message %s", id)
	}

	uc.store.Apply(DeleteLocal{ID: id})
	return nil
}
