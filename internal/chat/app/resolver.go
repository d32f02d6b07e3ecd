package app

import (
	"sync"

	"social_chat_sync/internal/chat/domain"
)

// IsRelevant reports whether msg belongs to the open conversation as seen by actorID.
// Direct threads match in either direction; groups match on group id only.
func IsRelevant(msg domain.Message, actorID string, open *domain.ConversationKey) bool {
	if open == nil || open.ID == "" {
		return false
	}

	if open.IsGroup {
		return msg.GroupID != "" && msg.GroupID == open.ID
	}
	if msg.GroupID != "" {
		return false
	}

	peer := open.ID
	return (msg.SenderID == actorID && msg.ReceiverID == peer) ||
		(msg.SenderID == peer && msg.ReceiverID == actorID)
}

// KeyFor conversation a message is filed under from actorID's point of view
func KeyFor(msg domain.Message, actorID string) domain.ConversationKey {
	if msg.GroupID != "" {
		return domain.GroupKey(msg.GroupID)
	}
	if msg.SenderID == actorID {
		return domain.PeerKey(msg.ReceiverID)
	}
	return domain.PeerKey(msg.SenderID)
}

// ConversationContext the conversation the user currently has open, shared between the
// session (writer) and the dispatcher (reader)
type ConversationContext struct {
	mu   sync.RWMutex
	key  domain.ConversationKey
	open bool
}

// Set 切換目前對話
func (c *ConversationContext) Set(key domain.ConversationKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key, c.open = key, true
}

// Clear no conversation open
func (c *ConversationContext) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key, c.open = domain.ConversationKey{}, false
}

// Get current key, ok=false when nothing is open
func (c *ConversationContext) Get() (domain.ConversationKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key, c.open
}

// Ptr current key as a pointer for IsRelevant; nil when nothing is open
func (c *ConversationContext) Ptr() *domain.ConversationKey {
	key, ok := c.Get()
	if !ok {
		return nil
	}
	return &key
}
