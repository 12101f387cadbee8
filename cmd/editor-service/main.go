package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/config"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/db"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/events"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/handler"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/kafka"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/lock"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/logger"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/rabbitmq"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/repository"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	gormDB, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{
		Schema:     cfg.DBSchema,
		RequireTLS: cfg.RequireTLS(),
		MaxOpen:    20,
		MaxIdle:    5,
	}, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close(gormDB)

	if cfg.AutoMigrate {
		log.Info().Msg("running migrations")
		if err := db.Migrate(gormDB); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	locker, closeLocker := newLocker(cfg, log)
	defer closeLocker()

	emitter := events.NewEmitter(newPublisher(cfg, log), log, cfg.PublishTimeout)
	defer emitter.Close()

	projectRepo := repository.NewProjectRepository(gormDB)
	fileRepo := repository.NewFileRepository(gormDB)

	h := handler.New(
		service.NewProjectService(projectRepo, emitter, cfg.StoreTimeout),
		service.NewFileService(fileRepo, locker, emitter, cfg.StoreTimeout),
		service.NewExportService(fileRepo, cfg.StoreTimeout, cfg.ExportTimeout),
		gormDB,
		log,
	)
	router := handler.NewRouter(h, log, cfg.AllowOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		// downloads are bounded by EXPORT_TIMEOUT instead
		WriteTimeout:   0,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("editor-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down editor-service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newLocker serializes bulk replaces through Redis when REDIS_ADDR is set.
// An unreachable Redis falls back to no locking.
func newLocker(cfg config.Config, log zerolog.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		return lock.NoopLocker{}, func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, project locking disabled")
		_ = rdb.Close()
		return lock.NoopLocker{}, func() {}
	}

	log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.ProjectLockTTL).Msg("project locking enabled")
	return lock.NewRedisLocker(rdb, cfg.ProjectLockTTL), func() { _ = rdb.Close() }
}

func newPublisher(cfg config.Config, log zerolog.Logger) events.Publisher {
	switch cfg.EventBackend {
	case "rabbitmq":
		producer, err := rabbitmq.NewProducer(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
			return events.NewNoopPublisher()
		}
		log.Info().Msg("publishing events to rabbitmq")
		return producer
	case "kafka":
		if cfg.KafkaBrokerURL == "" {
			log.Warn().Msg("KAFKA_BROKER_URL not set, events disabled")
			return events.NewNoopPublisher()
		}
		log.Info().Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
		return kafka.NewProducer(cfg.KafkaBrokerURL, cfg.KafkaTopic)
	default:
		return events.NewNoopPublisher()
	}
}
