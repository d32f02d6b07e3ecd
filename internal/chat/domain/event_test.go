package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	payload := []byte(`{"op":"INSERT","record":{"id":"m1","created_at":"2025-01-23T08:00:00Z","sender_id":"bob","receiver_id":"alice","group_id":null,"content":"hi","is_read":false,"image_url":null,"reactions":{"👍":["alice","alice"]}}}`)

	evt, err := DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, OpInsert, evt.Op)

	m, err := evt.Record.ToMessage()
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "alice", m.ReceiverID)
	assert.Empty(t, m.GroupID)
	assert.Equal(t, time.Date(2025, 1, 23, 8, 0, 0, 0, time.UTC), m.CreatedAt)
	assert.Equal(t, Reactions{"👍": {"alice"}}, m.Reactions)
	assert.Empty(t, m.Status)
}

func TestDecodeEventDeleteByKey(t *testing.T) {
	for _, payload := range []string{
		`{"op":"delete","record":{"id":"m1"}}`,
		`{"op":"delete","record":{"id":"m1","created_at":"2025-01-23T08:00:00Z"}}`,
		`{"op":"DELETE","record":{"id":"m1","sender_id":"bob"}}`,
	} {
		evt, err := DecodeEvent([]byte(payload))
		require.NoError(t, err, payload)
		assert.Equal(t, OpDelete, evt.Op)
		assert.Equal(t, "m1", evt.Record.ID)
	}

	_, err := DecodeEvent([]byte(`{"op":"delete","record":{"created_at":"2025-01-23T08:00:00Z"}}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestDecodeEventMalformed(t *testing.T) {
	for _, payload := range []string{
		``,
		`[]`,
		`{"op":"insert","record":null}`,
		`{"op":"truncate","record":{"id":"m1"}}`,
		`{"op":"insert","record":{"sender_id":"bob"}}`,
		`{"op":"insert","record":{"id":"m1","created_at":"2025-01-23T08:00:00Z","receiver_id":"alice"}}`,
		`{"op":"insert","record":{"id":"m1","created_at":"2025-01-23T08:00:00Z","sender_id":"bob"}}`,
		`{"op":"update","record":{"id":"m1","created_at":"2025-01-23T08:00:00Z","sender_id":"bob","receiver_id":"alice","group_id":"g1"}}`,
	} {
		_, err := DecodeEvent([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedEvent, payload)
	}
}

func TestToWireRecord(t *testing.T) {
	m := Message{
		ID:        "m1",
		CreatedAt: time.Date(2025, 1, 23, 8, 0, 0, 0, time.UTC),
		SenderID:  "alice",
		GroupID:   "g1",
		Content:   "hello",
		MediaRef:  "https://cdn.local/a.png",
		Status:    StatusSent,
	}

	rec := ToWireRecord(m)
	assert.Nil(t, rec.ReceiverID)
	require.NotNil(t, rec.GroupID)
	assert.Equal(t, "g1", *rec.GroupID)
	assert.Equal(t, "https://cdn.local/a.png", *rec.ImageURL)
	assert.NotNil(t, rec.Reactions)

	payload, err := EncodeEvent(OpUpdate, rec)
	require.NoError(t, err)
	evt, err := DecodeEvent(payload)
	require.NoError(t, err)
	back, err := evt.Record.ToMessage()
	require.NoError(t, err)

	m.Status = ""
	m.Reactions = Reactions{}
	assert.Equal(t, m, back)
}
