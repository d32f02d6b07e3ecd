package domain

import (
	"sort"
	"strings"
	"time"
)

// ProvisionalIDPrefix marks ids generated on the client before persistence confirms a message.
const ProvisionalIDPrefix = "tmp-"

// MessageStatus client derived delivery state, never persisted
type MessageStatus string

const (
	// StatusSending provisional record waiting for persistence
	StatusSending MessageStatus = "sending"
	// StatusSent persisted with a canonical id
	StatusSent MessageStatus = "sent"
	// StatusDelivered observed by the recipient's stream
	StatusDelivered MessageStatus = "delivered"
	// StatusRead recipient viewed the conversation
	StatusRead MessageStatus = "read"
	// StatusFailed persistence rejected the send (record is dropped from the store)
	StatusFailed MessageStatus = "failed"
)

// ConversationKey identifies a thread. Peer and group ids live in separate namespaces.
type ConversationKey struct {
	ID      string `json:"id"`
	IsGroup bool   `json:"is_group"`
}

// PeerKey direct conversation with peerID
func PeerKey(peerID string) ConversationKey {
	return ConversationKey{ID: peerID}
}

// GroupKey group conversation
func GroupKey(groupID string) ConversationKey {
	return ConversationKey{ID: groupID, IsGroup: true}
}

func (k ConversationKey) String() string {
	if k.IsGroup {
		return "group:" + k.ID
	}
	return "peer:" + k.ID
}

// Message 一則對話訊息
type Message struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	SenderID   string        `json:"sender_id"`
	ReceiverID string        `json:"receiver_id,omitempty"`
	GroupID    string        `json:"group_id,omitempty"`
	Content    string        `json:"content"`
	MediaRef   string        `json:"media_ref,omitempty"`
	Reactions  Reactions     `json:"reactions,omitempty"`
	Status     MessageStatus `json:"status"`
	IsRead     bool          `json:"is_read"`
}

// IsProvisional reports whether the message still carries a client generated id
func (m *Message) IsProvisional() bool {
	return IsProvisionalID(m.ID)
}

// IsGroup message addressed to a group
func (m *Message) IsGroup() bool {
	return m.GroupID != ""
}

// Clone deep copies the reaction map so callers can't alias store state
func (m Message) Clone() Message {
	m.Reactions = m.Reactions.Clone()
	return m
}

// IsProvisionalID check id format
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalIDPrefix)
}

// Less orders by (CreatedAt, ID)
func Less(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortMessages sorts in place ascending by (CreatedAt, ID)
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return Less(msgs[i], msgs[j])
	})
}

// DeriveStatus status of a record that arrived from persistence or the event stream
func DeriveStatus(m Message, actorID string) MessageStatus {
	switch {
	case m.IsRead:
		return StatusRead
	case m.SenderID == actorID:
		return StatusSent
	default:
		return StatusDelivered
	}
}

// NewMessage create request handed to the persistence collaborator
type NewMessage struct {
	Key      ConversationKey
	SenderID string
	Content  string
	MediaRef string
}

// MessagePatch partial fields; nil means untouched
type MessagePatch struct {
	Status    *MessageStatus `json:"-"`
	IsRead    *bool          `json:"is_read,omitempty"`
	Reactions Reactions      `json:"reactions,omitempty"`
}

// IsEmpty nothing to merge
func (p MessagePatch) IsEmpty() bool {
	return p.Status == nil && p.IsRead == nil && p.Reactions == nil
}

// Apply shallow merges the patch into m. Reactions replace the map wholesale.
func (p MessagePatch) Apply(m *Message) {
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.IsRead != nil {
		m.IsRead = *p.IsRead
	}
	if p.Reactions != nil {
		m.Reactions = p.Reactions.Clone()
	}
}

// ReadPatch isRead=true, status=read
func ReadPatch() MessagePatch {
	read := true
	status := StatusRead
	return MessagePatch{Status: &status, IsRead: &read}
}
