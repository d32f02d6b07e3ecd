package repository

import (
	"context"
	"fmt"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const subscriptionBuffer = 256

// UserChannel redis channel carrying every event visible to actorID
func UserChannel(actorID string) string {
	return "chat:user:" + actorID
}

// RedisEventStream definition redis pub/sub event stream
type RedisEventStream struct {
	client *redis.Client
}

// NewRedisEventStream create RedisEventStream
func NewRedisEventStream(client *redis.Client) *RedisEventStream {
	return &RedisEventStream{client: client}
}

// Publish 將已編碼的事件發布到指定 channel
func (r *RedisEventStream) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

// PublishEvent fans an event out to every participant's channel
func (r *RedisEventStream) PublishEvent(ctx context.Context, op domain.EventOp, rec domain.WireRecord, actorIDs ...string) error {
	payload, err := domain.EncodeEvent(op, rec)
	if err != nil {
		return err
	}
	for _, id := range actorIDs {
		if err := r.Publish(ctx, UserChannel(id), payload); err != nil {
			return fmt.Errorf("publish to %s: %w", id, err)
		}
	}
	return nil
}

// Subscribe 訂閱自己 member ID 的 channel，訂閱確認後才回傳
func (r *RedisEventStream) Subscribe(ctx context.Context, actorID string) (Subscription, error) {
	channel := UserChannel(actorID)
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	sub := newChannelSubscription(subscriptionBuffer, cancel, pubsub.Close)

	go func() {
		defer close(sub.events)
		ch := pubsub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				select {
				case sub.events <- []byte(m.Payload):
				case <-pumpCtx.Done():
					return
				}
			case <-pumpCtx.Done():
				logger.Log.Info("redis subscription closed", zap.String("channel", channel))
				return
			}
		}
	}()

	return sub, nil
}
