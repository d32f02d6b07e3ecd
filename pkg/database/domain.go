package database

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Connection definition sql setting
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MongoDB definition mongo db
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// MinIOConnection definition minio media bucket
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// KafkaConnection definition kafka. HealthTopic only receives the connectivity ping.
type KafkaConnection struct {
	Brokers     []string
	HealthTopic string

	RetryCount    int
	RetryInterval time.Duration
}

// retries keeps a zero RetryCount from skipping the first attempt
func retries(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
