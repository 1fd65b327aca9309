package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rectmon/internal/cache"
	"rectmon/internal/config"
	"rectmon/internal/consumer"
	"rectmon/internal/db"
	httpserver "rectmon/internal/http"
	"rectmon/internal/http/handlers"
	"rectmon/internal/hub"
	"rectmon/internal/repository"
	"rectmon/internal/service"
	"rectmon/internal/ws"
)

const migrateTimeout = 30 * time.Second

// App wires the rectifier monitor: bus consumer, broadcast hub, live
// websocket sessions, and the read-only query API.
type App struct {
	server   *httpserver.Server
	ws       *ws.Server
	consumer *consumer.Consumer
	db       *sql.DB
	redis    *redis.Client
	logger   *zap.Logger
}

// New constructs application components.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := repository.Migrate(migrateCtx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	readingRepo := repository.NewReadingRepository(sqlDB)

	// The latest-reading cache is optional: without redis every read goes to
	// Postgres, nothing else changes.
	var (
		redisClient *redis.Client
		latestStore *cache.LatestStore
	)
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Warn("redis unavailable, latest-reading cache disabled", zap.Error(err))
		} else {
			latestStore = cache.NewLatestStore(redisClient, cfg.RedisTTL())
		}
	}

	broadcastHub := hub.New(logger)
	readings := service.NewReadingsService(readingRepo, latestStore, logger)

	var latestCache consumer.LatestCache
	if latestStore != nil {
		latestCache = latestStore
	}
	busConsumer := consumer.New(consumer.Options{
		Broker:   cfg.MQTT.Broker,
		Topic:    cfg.MQTT.Topic,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		QoS:      byte(cfg.MQTT.QoS),
	}, readingRepo, broadcastHub, latestCache, logger)

	wsServer := ws.NewServer(broadcastHub, readings, logger)
	readingsHandler := handlers.NewReadingsHandler(readings, logger)

	routes := httpserver.Routes{
		Readings:  readingsHandler.List(),
		Latest:    readingsHandler.Latest(),
		Dashboard: readingsHandler.Dashboard(),
		Stats:     readingsHandler.Stats(),
		ChartData: readingsHandler.ChartData(),
		LiveWS:    wsServer.HandleWS,
		Health:    handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:   server,
		ws:       wsServer,
		consumer: busConsumer,
		db:       sqlDB,
		redis:    redisClient,
		logger:   logger,
	}, nil
}

// Run starts the bus consumer and serves HTTP until the context ends.
func (a *App) Run(ctx context.Context) error {
	a.consumer.Start(ctx)
	defer a.consumer.Stop()
	defer a.ws.Shutdown()
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
