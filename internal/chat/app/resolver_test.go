package app

import (
	"testing"

	"social_chat_sync/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func TestIsRelevant(t *testing.T) {
	peerBob := domain.PeerKey("bob")
	groupG := domain.GroupKey("g1")
	groupBob := domain.GroupKey("bob")

	tests := []struct {
		name string
		msg  domain.Message
		open *domain.ConversationKey
		want bool
	}{
		{"nothing open", direct("m", "bob", "alice", 0), nil, false},
		{"inbound from peer", direct("m", "bob", "alice", 0), &peerBob, true},
		{"outbound to peer", direct("m", "alice", "bob", 0), &peerBob, true},
		{"other peer", direct("m", "carol", "alice", 0), &peerBob, false},
		{"peer to someone else", direct("m", "bob", "carol", 0), &peerBob, false},
		{"group message in open group", group("m", "carol", "g1", 0), &groupG, true},
		{"group message in other group", group("m", "carol", "g2", 0), &groupG, false},
		{"group message while peer open", group("m", "bob", "g1", 0), &peerBob, false},
		{"direct message while same-id group open", direct("m", "bob", "alice", 0), &groupBob, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRelevant(tt.msg, "alice", tt.open))
		})
	}
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, domain.PeerKey("bob"), KeyFor(direct("m", "alice", "bob", 0), "alice"))
	assert.Equal(t, domain.PeerKey("bob"), KeyFor(direct("m", "bob", "alice", 0), "alice"))
	assert.Equal(t, domain.GroupKey("g1"), KeyFor(group("m", "bob", "g1", 0), "alice"))
}

func TestConversationContext(t *testing.T) {
	var c ConversationContext
	_, ok := c.Get()
	assert.False(t, ok)
	assert.Nil(t, c.Ptr())

	c.Set(domain.GroupKey("g1"))
	key, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, domain.GroupKey("g1"), key)
	assert.Equal(t, &key, c.Ptr())

	c.Clear()
	assert.Nil(t, c.Ptr())
}
