package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social_chat_sync/internal/chat/app"
	"social_chat_sync/internal/chat/repository"
	"social_chat_sync/internal/chat/router"
	"social_chat_sync/pkg/config"
	"social_chat_sync/pkg/database"
	"social_chat_sync/pkg/logger"
	testtool "social_chat_sync/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.SyncClient, config.EnvConfig.SyncClientLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.SyncClient](config.EnvConfig.SyncClient, config.EnvConfig.SyncClientYAMLPath)
	cfg.ApplyDefaults()
	logger.Log.SetDebugMode(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 建立訊息儲存 (postgres / mongo)
	msgRepo, closeRepo := newMessageRepository(ctx, cfg)
	defer closeRepo()

	if m, ok := msgRepo.(repository.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			logger.Log.Fatal("migrate message store", zap.Error(err))
		}
	}

	// 2. 建立即時事件串流 (redis / kafka)
	stream, closeStream := newEventStream(ctx, cfg)
	defer closeStream()

	// 3. MinIO 媒體 (可選)
	deps := app.Dependencies{Messages: msgRepo, Stream: stream}
	if cfg.MinIO.Endpoint != "" {
		mc, err := database.NewMinIOConnection(ctx, database.MinIOConnection{
			Endpoint:      cfg.MinIO.Endpoint,
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.BucketName,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect minio", zap.String("endpoint", cfg.MinIO.Endpoint), zap.Error(err))
		}
		deps.Media = repository.NewMinIOMediaResolver(mc, cfg.MinIO.PresignExpiry)
	}

	testtool.StartPprof(cfg.PprofAddr)

	// 4. 啟動 Fiber
	r := fiber.New()
	if dir := config.EnvConfig.SyncClientLogPath; dir != "" {
		file, err := os.OpenFile(fmt.Sprintf("%s/access.log", dir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer file.Close()
		r.Use(fiber_log.New(fiber_log.Config{
			Output: file, // 将日志输出到文件
		}))
	}

	router.RegisterRoutes(r, app.NewChatWebsocketHandler(deps))

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down sync client")
		if err := r.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("sync client listening",
		zap.String("port", port),
		zap.String("persistence", string(cfg.Persistence)),
		zap.String("event_stream", string(cfg.EventStream)),
	)
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

func newMessageRepository(ctx context.Context, cfg config.SyncClient) (repository.MessageRepository, func()) {
	switch cfg.Persistence {
	case config.PersistenceMongo:
		uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
		mongo, err := database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		}, cfg.MongoSQL.Database)
		if err != nil {
			logger.Log.Fatal("Unable to connect to mongoDB database after retries",
				zap.String("host", cfg.MongoSQL.Host), zap.Error(err))
		}
		return repository.NewMongoMessageRepository(mongo.Database), func() {
			_ = mongo.Close(context.Background())
		}

	case config.PersistencePostgres:
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
		pool, err := database.NewDatabaseConnection(ctx, database.Connection{
			ConnectStr:    dsn,
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("Unable to connect to postgreSQL database after retries",
				zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
		}
		return repository.NewPostgresMessageRepository(pool), pool.Close

	default:
		logger.Log.Fatal("unknown persistence driver", zap.String("persistence", string(cfg.Persistence)))
		return nil, func() {}
	}
}

func newEventStream(ctx context.Context, cfg config.SyncClient) (repository.EventStream, func()) {
	switch cfg.EventStream {
	case config.StreamKafka:
		conn := database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			HealthTopic:   cfg.Kafka.HealthTopic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		}
		writer, err := database.NewKafkaWriterWithRetry(ctx, conn)
		if err != nil {
			logger.Log.Fatal("connect kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		return repository.NewKafkaEventStream(conn, cfg.Kafka.TopicPrefix, writer), func() {
			_ = writer.Close()
		}

	case config.StreamRedis:
		var (
			client *redis.Client
			err    error
		)
		if cfg.Redis.Addr != "" {
			client, err = database.NewStandaloneRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.RedisDB)
		} else {
			masterName, sentinel := config.GetRedisSetting()
			client, err = database.NewRedisClient(ctx, masterName, sentinel, cfg.Redis.RedisDB)
		}
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		return repository.NewRedisEventStream(client), func() {
			_ = client.Close()
		}

	default:
		logger.Log.Fatal("unknown event stream driver", zap.String("event_stream", string(cfg.EventStream)))
		return nil, func() {}
	}
}
