package config

import "time"

// PersistenceDriver selects the MessageRepository implementation
type PersistenceDriver string

// EventStreamDriver selects the EventStream implementation
type EventStreamDriver string

const (
	// PersistencePostgres relational backend (default)
	PersistencePostgres PersistenceDriver = "postgres"
	// PersistenceMongo document backend
	PersistenceMongo PersistenceDriver = "mongo"

	// StreamRedis redis pub/sub (default)
	StreamRedis EventStreamDriver = "redis"
	// StreamKafka kafka topics per actor
	StreamKafka EventStreamDriver = "kafka"
)

// SyncClient definition sync_client YAML structure
type SyncClient struct {
	Port      string `mapstructure:"port"`
	Debug     bool   `mapstructure:"debug"`
	PprofAddr string `mapstructure:"pprof_addr"`

	Persistence PersistenceDriver `mapstructure:"persistence"`
	EventStream EventStreamDriver `mapstructure:"event_stream"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	MongoSQL   DatabaseConfig `mapstructure:"mongo"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
}

// RedisConfig definition redis setting. Addr empty means sentinel discovery from .env
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	HealthTopic   string   `mapstructure:"health_topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// MinIOConfig definition media bucket. Endpoint empty disables media resolution
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetryInterval int           `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// ApplyDefaults fills zero values with the defaults the client runs with
func (c *SyncClient) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "8090"
	}
	if c.Persistence == "" {
		c.Persistence = PersistencePostgres
	}
	if c.EventStream == "" {
		c.EventStream = StreamRedis
	}
	if c.Kafka.TopicPrefix == "" {
		c.Kafka.TopicPrefix = "chat.events."
	}
	if c.Kafka.HealthTopic == "" {
		c.Kafka.HealthTopic = "chat.health"
	}
	if c.MinIO.PresignExpiry == 0 {
		c.MinIO.PresignExpiry = 24 * time.Hour
	}
}
