package app

import (
	"context"
	"fmt"
	"strings"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/internal/chat/repository"
	errprocess "social_chat_sync/pkg/err"
)

// ReactionUseCase toggles reactions, server wins
type ReactionUseCase struct {
	store   *Store
	msgRepo repository.MessageRepository
}

// NewReactionUseCase create ReactionUseCase
func NewReactionUseCase(store *Store, msgRepo repository.MessageRepository) *ReactionUseCase {
	return &ReactionUseCase{
		store:   store,
		msgRepo: msgRepo,
	}
}

// ToggleReaction adds or removes actorID from emoji on messageID. The new map is persisted
// first and only applied locally once the backend accepted it.
func (uc *ReactionUseCase) ToggleReaction(ctx context.Context, messageID, emoji, actorID string) (domain.Reactions, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || actorID == "" {
		return nil, fmt.Errorf("%w: emoji and actor are required", domain.ErrInvalidInput)
	}
	if domain.IsProvisionalID(messageID) {
		return nil, fmt.Errorf("%w: message %s is not persisted yet", domain.ErrInvalidInput, messageID)
	}

	msg, ok := uc.store.Get(messageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, messageID)
	}

	next := msg.Reactions.Toggle(emoji, actorID)
	if err := uc.msgRepo.UpdateMessage(ctx, messageID, domain.MessagePatch{Reactions: next}); err != nil {
		return nil, errprocess.Wrap(err, "toggle reaction %s on %s", emoji, messageID)
	}

	uc.store.Apply(ToggleReaction{ID: messageID, Reactions: next})
	return next, nil
}
