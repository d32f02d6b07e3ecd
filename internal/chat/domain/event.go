package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventOp realtime operation carried by the stream
type EventOp string

const (
	// OpInsert new message row
	OpInsert EventOp = "insert"
	// OpUpdate changed row (reactions, read flag)
	OpUpdate EventOp = "update"
	// OpDelete removed row
	OpDelete EventOp = "delete"
)

// WireRecord message row as stored by the backend and carried by the stream
type WireRecord struct {
	ID         string              `json:"id" bson:"_id"`
	CreatedAt  string              `json:"created_at" bson:"created_at"`
	SenderID   string              `json:"sender_id" bson:"sender_id"`
	ReceiverID *string             `json:"receiver_id" bson:"receiver_id"`
	GroupID    *string             `json:"group_id" bson:"group_id"`
	Content    string              `json:"content" bson:"content"`
	IsRead     bool                `json:"is_read" bson:"is_read"`
	ImageURL   *string             `json:"image_url" bson:"image_url"`
	Reactions  map[string][]string `json:"reactions" bson:"reactions"`
}

// Event decoded stream notification
type Event struct {
	Op     EventOp
	Record WireRecord
}

type wireEvent struct {
	Op     string          `json:"op"`
	Record json.RawMessage `json:"record"`
}

// DecodeEvent parses `{"op": ..., "record": {...}}`. Every failure wraps ErrMalformedEvent.
func DecodeEvent(payload []byte) (Event, error) {
	var raw wireEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	op := EventOp(strings.ToLower(strings.TrimSpace(raw.Op)))
	switch op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return Event{}, fmt.Errorf("%w: unknown op %q", ErrMalformedEvent, raw.Op)
	}

	if len(raw.Record) == 0 || string(raw.Record) == "null" {
		return Event{}, fmt.Errorf("%w: missing record", ErrMalformedEvent)
	}
	var rec WireRecord
	if err := json.Unmarshal(raw.Record, &rec); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if rec.ID == "" {
		return Event{}, fmt.Errorf("%w: record without id", ErrMalformedEvent)
	}

	evt := Event{Op: op, Record: rec}
	if op == OpDelete {
		// deletes are applied by primary key only
		return evt, nil
	}
	if _, err := rec.ToMessage(); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// EncodeEvent inverse of DecodeEvent, used by publishers and tests
func EncodeEvent(op EventOp, rec WireRecord) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Op: string(op), Record: body})
}

// ToMessage validates and converts. Status is left empty; callers derive it.
func (r WireRecord) ToMessage() (Message, error) {
	if r.ID == "" || r.SenderID == "" {
		return Message{}, fmt.Errorf("%w: id and sender_id are required", ErrMalformedEvent)
	}
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("%w: created_at %q: %v", ErrMalformedEvent, r.CreatedAt, err)
	}

	receiver, group := deref(r.ReceiverID), deref(r.GroupID)
	if (receiver == "") == (group == "") {
		return Message{}, fmt.Errorf("%w: exactly one of receiver_id and group_id must be set", ErrMalformedEvent)
	}

	return Message{
		ID:         r.ID,
		CreatedAt:  created.UTC(),
		SenderID:   r.SenderID,
		ReceiverID: receiver,
		GroupID:    group,
		Content:    r.Content,
		MediaRef:   deref(r.ImageURL),
		Reactions:  NormalizeReactions(r.Reactions),
		IsRead:     r.IsRead,
	}, nil
}

// ToWireRecord message -> wire shape (status is dropped)
func ToWireRecord(m Message) WireRecord {
	rec := WireRecord{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		SenderID:  m.SenderID,
		Content:   m.Content,
		IsRead:    m.IsRead,
		Reactions: map[string][]string(m.Reactions.Clone()),
	}
	if m.ReceiverID != "" {
		rec.ReceiverID = ptr(m.ReceiverID)
	}
	if m.GroupID != "" {
		rec.GroupID = ptr(m.GroupID)
	}
	if m.MediaRef != "" {
		rec.ImageURL = ptr(m.MediaRef)
	}
	if rec.Reactions == nil {
		rec.Reactions = map[string][]string{}
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func ptr(s string) *string {
	return &s
}
