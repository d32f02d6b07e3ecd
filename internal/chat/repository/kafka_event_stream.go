package repository

import (
	"context"
	"fmt"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/pkg/database"
	errprocess "social_chat_sync/pkg/err"
	"social_chat_sync/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter kafka producer side; *kafka.Writer satisfies it
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaEventStream alternative transport: one topic per actor (`<prefix><actorID>`)
type KafkaEventStream struct {
	conn   database.KafkaConnection
	prefix string
	writer MessageWriter
}

// NewKafkaEventStream create KafkaEventStream. writer may be nil for read-only use.
func NewKafkaEventStream(conn database.KafkaConnection, topicPrefix string, writer MessageWriter) *KafkaEventStream {
	return &KafkaEventStream{conn: conn, prefix: topicPrefix, writer: writer}
}

// Topic per-actor topic name
func (k *KafkaEventStream) Topic(actorID string) string {
	return k.prefix + actorID
}

// PublishEvent writes the encoded event to every participant's topic
func (k *KafkaEventStream) PublishEvent(ctx context.Context, op domain.EventOp, rec domain.WireRecord, actorIDs ...string) error {
	if k.writer == nil {
		return errprocess.Set("kafka event stream has no writer")
	}
	payload, err := domain.EncodeEvent(op, rec)
	if err != nil {
		return err
	}

	msgs := make([]kafka.Message, 0, len(actorIDs))
	for _, id := range actorIDs {
		msgs = append(msgs, kafka.Message{Topic: k.Topic(id), Key: []byte(rec.ID), Value: payload})
	}
	return k.writer.WriteMessages(ctx, msgs...)
}

// Subscribe reads new events from the actor's topic starting at the latest offset
func (k *KafkaEventStream) Subscribe(ctx context.Context, actorID string) (Subscription, error) {
	topic := k.Topic(actorID)
	reader, err := database.NewKafkaReader(k.conn, topic)
	if err != nil {
		return nil, fmt.Errorf("kafka reader %s: %w", topic, err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	sub := newChannelSubscription(subscriptionBuffer, cancel, reader.Close)

	go func() {
		defer close(sub.events)
		for {
			m, err := reader.ReadMessage(pumpCtx)
			if err != nil {
				if pumpCtx.Err() == nil {
					logger.Log.Error("kafka read failed", zap.String("topic", topic), zap.Error(err))
				}
				return
			}
			select {
			case sub.events <- m.Value:
			case <-pumpCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}
