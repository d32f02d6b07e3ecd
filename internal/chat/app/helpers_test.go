package app

import (
	"time"

	"social_chat_sync/internal/chat/domain"
)

var base = time.Date(2025, 1, 23, 8, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func direct(id, from, to string, sec int) domain.Message {
	return domain.Message{ID: id, CreatedAt: at(sec), SenderID: from, ReceiverID: to, Content: "msg " + id}
}

func group(id, from, groupID string, sec int) domain.Message {
	return domain.Message{ID: id, CreatedAt: at(sec), SenderID: from, GroupID: groupID, Content: "msg " + id}
}

func ids(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
