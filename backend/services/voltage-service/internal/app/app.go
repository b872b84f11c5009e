package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "voltwatch/backend/libs/redis"
	"voltwatch/backend/services/voltage-service/internal/auth"
	"voltwatch/backend/services/voltage-service/internal/config"
	"voltwatch/backend/services/voltage-service/internal/db"
	httpserver "voltwatch/backend/services/voltage-service/internal/http"
	"voltwatch/backend/services/voltage-service/internal/http/handlers"
	"voltwatch/backend/services/voltage-service/internal/http/middleware"
	"voltwatch/backend/services/voltage-service/internal/mqtt"
	redisstore "voltwatch/backend/services/voltage-service/internal/redis"
	"voltwatch/backend/services/voltage-service/internal/repository"
	"voltwatch/backend/services/voltage-service/internal/service"
	"voltwatch/backend/services/voltage-service/internal/stats"
	"voltwatch/backend/services/voltage-service/internal/ws"
)

// App wires voltage-service dependencies.
type App struct {
	server      *httpserver.Server
	handler     http.Handler
	db          *sql.DB
	redisClient *redis.Client
	hub         *ws.Hub
	broker      *mqtt.Broker
	logger      *zap.Logger
}

// New constructs the application graph and applies the schema.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	driver := cfg.DatabaseDriver()
	sqlDB, err := db.Open(ctx, driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, sqlDB, driver); err != nil {
		sqlDB.Close()
		return nil, err
	}

	a := &App{db: sqlDB, logger: logger}

	readingRepo := repository.NewReadingRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)

	// A typed nil *redisstore.Store must not reach the services as a non-nil interface.
	var openCache service.OpenSessionCache
	if cfg.RedisEnabled() {
		redisClient, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		a.redisClient = redisClient
		openCache = redisstore.NewStore(redisClient, cfg.OpenSessionTTL())
	} else {
		logger.Info("redis not configured, open session cache disabled")
	}

	a.hub = ws.NewHub(cfg.PingInterval(), logger.Named("hub"))
	wsServer := ws.NewServer(a.hub, cfg.SendBuffer(), cfg.WriteTimeout(), logger.Named("ws"))

	engine := stats.NewEngine(readingRepo)
	ingestService := service.NewIngestionService(readingRepo, sessionRepo, a.hub, openCache, logger.Named("ingest"))
	queryService := service.NewQueryService(readingRepo, sessionRepo, engine, openCache, logger.Named("query"))

	authenticator := auth.NewAuthenticator(auth.Settings{
		APIKey:         cfg.Auth.APIKey,
		APIKeyHash:     cfg.Auth.APIKeyHash,
		AllowedDevices: cfg.Auth.AllowedDevices,
	})

	var viewerAuth func(http.Handler) http.Handler
	if cfg.Auth.ViewerSecret != "" {
		viewerAuth = middleware.ViewerAuth(auth.NewViewerTokens(cfg.Auth.ViewerSecret, 0))
	}

	a.handler = httpserver.NewRouter(httpserver.RouterDeps{
		VoltageHandlers: handlers.NewVoltageHandlers(ingestService, queryService, authenticator, logger.Named("http")),
		WeldingHandlers: handlers.NewWeldingHandlers(ingestService, queryService, logger.Named("http")),
		HealthHandler:   handlers.NewHealthHandler(sqlDB, a.hub, authenticator.AllowedDevices(), time.Now()),
		WebSocket:       wsServer.HandleWS,
		ViewerAuth:      viewerAuth,
		Logger:          logger.Named("http"),
	})
	a.server = httpserver.NewServer(cfg.HTTPAddress(), a.handler, logger)

	if cfg.MQTT.Enabled {
		hook := mqtt.NewIngestHook(authenticator, ingestService, logger.Named("mqtt"))
		broker, err := mqtt.NewBroker(cfg.MQTT.Address, hook, logger.Named("mqtt"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.broker = broker
	}

	return a, nil
}

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the observer keepalive, the MQTT listener when enabled and the HTTP
// server, and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Start(ctx)

	if a.broker != nil {
		if err := a.broker.Serve(); err != nil {
			return err
		}
	}

	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.Warn("failed to close mqtt broker", zap.Error(err))
		}
	}
	if a.hub != nil {
		a.hub.CloseAll()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
