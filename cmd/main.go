package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pot-code/lessonrelay/internal/conversation"
	"github.com/pot-code/lessonrelay/internal/domain"
	infra "github.com/pot-code/lessonrelay/internal/infrastructure"
	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
	"github.com/pot-code/lessonrelay/internal/infrastructure/driver"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"github.com/pot-code/lessonrelay/internal/infrastructure/media"
	"github.com/pot-code/lessonrelay/internal/infrastructure/uuid"
	"github.com/pot-code/lessonrelay/internal/interfaces/rest"
	"github.com/pot-code/lessonrelay/internal/interfaces/rest/handler"
	"github.com/pot-code/lessonrelay/internal/lesson"
	"github.com/pot-code/lessonrelay/internal/notify"
	"github.com/pot-code/lessonrelay/internal/report"
	"github.com/pot-code/lessonrelay/internal/store"
	"github.com/pot-code/lessonrelay/internal/user"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "lessonrelay:session:"

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := make(map[string]handler.Pinger)

	var kv driver.KeyValueDB
	if option.UsesKVStore() {
		rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password, option.KVStore.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			logger.Fatal("Failed to connect kv storage", zap.Error(err))
		}
		logger.Debug("Create redis client", zap.String("kv.host", option.KVStore.Host), zap.Int("kv.db", option.KVStore.DB))
		kv = rdb
		health["kv"] = rdb
	}

	backend, closeBackend, err := createBackend(ctx, option, kv, health, logger)
	if err != nil {
		logger.Fatal("Failed to create snapshot backend", zap.Error(err))
	}
	defer closeBackend()

	mediaStorage, closeMedia, err := createMedia(ctx, option)
	if err != nil {
		logger.Fatal("Failed to create media storage", zap.Error(err))
	}
	defer closeMedia()

	var sessions conversation.SessionStore
	switch option.Session.Driver {
	case "redis":
		sessions = conversation.NewKVSessionStore(kv, sessionKeyPrefix, option.SessionTimeout)
	default:
		sessions = conversation.NewMemorySessionStore(option.SessionTimeout)
	}

	Store := store.NewRepository(backend, mediaStorage)
	health["store"] = Store
	health["media"] = mediaStorage

	Websocket := infra.NewWebsocket(logger)
	Notifier := notify.NewFanOutNotifier(Websocket, option.Notify.Concurrency)
	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)

	UserUseCase := user.NewUserUseCase(Store)
	LessonUseCase := lesson.NewLessonUseCase(Store, mediaStorage, Notifier)
	ReportUseCase := report.NewReportUseCase(Store, mediaStorage, Notifier, UUIDGenerator)
	Machine := conversation.NewMachine(UserUseCase, LessonUseCase, ReportUseCase, sessions, Store,
		auth.NewSecretGuard(option.Security.ResetSecretHash))

	logger.Info("Starting lessonrelay",
		zap.String("store.driver", option.Store.Driver),
		zap.String("media.driver", option.Media.Driver),
		zap.String("session.driver", option.Session.Driver),
		zap.Int("port", option.Port),
	)
	if err := rest.Serve(ctx, option, &rest.Dependencies{
		Processor: Machine,
		Media:     mediaStorage,
		Store:     Store,
		Websocket: Websocket,
		Health:    health,
		IDGen:     UUIDGenerator,
		Logger:    logger,
	}); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}

// createBackend snapshot backend selected by store.driver, the returned func releases its connection
func createBackend(ctx context.Context, option *infra.AppConfig, kv driver.KeyValueDB, health map[string]handler.Pinger, logger *zap.Logger) (domain.SnapshotBackend, func(), error) {
	noop := func() {}
	switch option.Store.Driver {
	case "memory":
		return store.NewMemoryBackend(), noop, nil
	case "file":
		return store.NewFileBackend(option.Store.FilePath), noop, nil
	case "redis":
		return store.NewKVBackend(kv, option.Store.Key), noop, nil
	case "mysql", "postgres":
		dbConn, err := driver.GetDBConnection(&driver.DBConfig{
			User:     option.Database.User,
			Password: option.Database.Password,
			MaxConn:  option.Database.MaxConn,
			Protocol: option.Database.Protocol,
			Driver:   option.Database.Driver,
			Host:     option.Database.Host,
			Port:     option.Database.Port,
			Query:    option.Database.Query,
			Schema:   option.Database.Schema,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create DB connection: %w", err)
		}
		logger.Debug("Create DB connection instance", zap.String("db.driver", option.Database.Driver),
			zap.String("db.schema", option.Database.Schema),
			zap.String("db.host", option.Database.Host),
		)
		backend := store.NewSQLBackend(dbConn, option.Database.Driver)
		if err := backend.EnsureSchema(ctx); err != nil {
			dbConn.Close(context.Background())
			return nil, nil, err
		}
		health["db"] = dbConn
		return backend, func() { dbConn.Close(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver: %s", option.Store.Driver)
}

// createMedia media storage selected by media.driver
func createMedia(ctx context.Context, option *infra.AppConfig) (domain.MediaStorage, func(), error) {
	noop := func() {}
	switch option.Media.Driver {
	case "memory":
		return media.NewMemoryStorage(), noop, nil
	case "local":
		ls, err := media.NewLocalStorage(option.Media.Root)
		if err != nil {
			return nil, nil, err
		}
		return ls, noop, nil
	case "gcs":
		gs, err := media.NewGCSStorage(ctx, option.Media.Bucket, option.Media.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return gs, func() { gs.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported media driver: %s", option.Media.Driver)
}
