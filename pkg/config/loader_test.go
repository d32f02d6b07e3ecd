package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
port: "9000"
persistence: mongo
redis:
  addr: ${TEST_REDIS_ADDR}
kafka:
  brokers:
    - k1:9092
    - k2:9092
minio:
  presign_expiry: 2h
`

func TestLoadConfigE(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync_test.yaml"), []byte(sampleYAML), 0o644))
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfigE[SyncClient]("sync_test", dir)
	require.NoError(t, err)
	cfg.ApplyDefaults()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, PersistenceMongo, cfg.Persistence)
	assert.Equal(t, StreamRedis, cfg.EventStream)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "chat.events.", cfg.Kafka.TopicPrefix)
	assert.Equal(t, 2*time.Hour, cfg.MinIO.PresignExpiry)
}

func TestLoadConfigEMissingFile(t *testing.T) {
	_, err := LoadConfigE[SyncClient]("nope", t.TempDir())
	assert.Error(t, err)
}

func TestGetRedisSetting(t *testing.T) {
	t.Setenv("REDIS_MASTER_NAME", "primary")
	t.Setenv("REDIS_SENTINEL1_IP", "10.0.0.1")
	t.Setenv("REDIS_SENTINEL1_PORT", "26379")

	master, addrs := GetRedisSetting()
	assert.Equal(t, "primary", master)
	assert.Contains(t, addrs, "10.0.0.1:26379")
}

func TestGetPath(t *testing.T) {
	_, err := GetPath("definitely-missing.file", 2)
	assert.Error(t, err)
}
