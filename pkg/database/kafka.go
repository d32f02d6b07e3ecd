package database

import (
	"context"
	"fmt"
	"time"

	"social_chat_sync/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 嘗試建立 Kafka Writer 並發送測試訊息以確認連線
// writer 不綁定 topic，每則訊息自行指定
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	var err error

	for attempt := 1; attempt <= retries(k.RetryCount); attempt++ {
		writer := &kafka.Writer{
			Addr:                   kafka.TCP(k.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}

		// 發送 ping 到 health topic 確認連線
		err = writer.WriteMessages(ctx, kafka.Message{
			Topic: k.HealthTopic,
			Key:   []byte("ping"),
			Value: []byte("ping"),
		})
		if err == nil {
			logger.Log.Info("kafka writer ready", zap.Int("attempt", attempt), zap.Strings("brokers", k.Brokers))
			return writer, nil
		}

		logger.Log.Warn("kafka writer connect failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max", k.RetryCount),
			zap.Error(err),
		)
		writer.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(k.RetryInterval * time.Second):
		}
	}

	return nil, fmt.Errorf("無法建立 Kafka Writer，經過 %d 次嘗試: %w", retries(k.RetryCount), err)
}

// NewKafkaReader reader on a single-partition topic, starting after the newest offset
// so a fresh subscriber only sees events published from now on
func NewKafkaReader(k KafkaConnection, topic string) (*kafka.Reader, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka reader: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka reader: empty topic")
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.Brokers,
		Topic:       topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	}), nil
}
