package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rankrunner/rankrunner/internal/cache"
	"github.com/rankrunner/rankrunner/internal/config"
	"github.com/rankrunner/rankrunner/internal/database"
	"github.com/rankrunner/rankrunner/internal/events"
	"github.com/rankrunner/rankrunner/internal/handler"
	"github.com/rankrunner/rankrunner/internal/logger"
	"github.com/rankrunner/rankrunner/internal/repository"
	"github.com/rankrunner/rankrunner/internal/service"
)

type App struct {
	cfg    *config.Config
	logger *logger.Logger

	mongoClient *database.MongoClient
	redisClient *cache.RedisClient
	natsClient  *events.Client

	leaderboardService service.LeaderboardService
	httpServer         *http.Server

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	app.initLogger()

	userRepo, historyRepo := app.initStore(ctx)

	opts := app.initOptionalCollaborators(ctx)

	app.leaderboardService = service.NewLeaderboardService(userRepo, historyRepo, app.logger, opts...)

	app.initHTTP()

	return app, nil
}

func (a *App) initLogger() {
	if a.cfg.Server.Environment != "production" {
		a.logger = logger.Development("rankrunner")
		return
	}

	a.logger = logger.New(logger.Config{
		Level:       a.cfg.Server.LogLevel,
		Format:      a.cfg.Server.LogFormat,
		ServiceName: "rankrunner",
	})
}

// initStore picks the persistent repositories when Mongo is reachable and
// falls back to the in-memory ones otherwise. The choice is made once at
// startup, never per request.
func (a *App) initStore(ctx context.Context) (repository.UserRepository, repository.HistoryRepository) {
	mongoClient, err := database.Connect(ctx, a.cfg.Mongo)
	if err == nil {
		a.mongoClient = mongoClient
		a.cleanup = append(a.cleanup, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return mongoClient.Close(shutdownCtx)
		})

		a.logger.Info("Connected to MongoDB", "database", a.cfg.Mongo.Database)
		return repository.NewMongoUserRepository(mongoClient), repository.NewMongoHistoryRepository(mongoClient)
	}

	if errors.Is(err, database.ErrNotConfigured) {
		a.logger.Warn("Mongo URI not configured, using in-memory store")
	} else {
		a.logger.Warn("MongoDB unreachable, using in-memory store", "error", err)
	}

	userRepo := repository.NewMemoryUserRepository()
	return userRepo, repository.NewMemoryHistoryRepository(userRepo)
}

func (a *App) initOptionalCollaborators(ctx context.Context) []service.Option {
	var opts []service.Option

	if a.cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(a.cfg.Redis)
		if err != nil {
			a.logger.Warn("Redis unreachable, podium cache disabled", "error", err)
		} else {
			a.redisClient = redisClient
			a.cleanup = append(a.cleanup, redisClient.Close)
			opts = append(opts, service.WithPodiumCache(cache.NewPodiumCache(redisClient, a.logger)))
			a.logger.Info("Podium cache enabled", "address", a.cfg.Redis.Address)
		}
	}

	if a.cfg.NATS.URL != "" {
		natsClient, err := events.NewClient(ctx, &events.Config{
			URL:           a.cfg.NATS.URL,
			MaxReconnect:  a.cfg.NATS.MaxReconnect,
			ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
			Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			a.logger.Warn("NATS unreachable, event publishing disabled", "error", err)
		} else {
			a.natsClient = natsClient
			a.cleanup = append(a.cleanup, natsClient.Close)
			opts = append(opts, service.WithEventPublisher(events.NewEventPublisher(natsClient, a.logger)))
			a.logger.Info("Event publishing enabled", "url", a.cfg.NATS.URL)
		}
	}

	return opts
}

func (a *App) initHTTP() {
	if a.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), a.requestLogger())

	leaderboardHandler := handler.NewLeaderboardHandler(a.leaderboardService, a.logger)
	leaderboardHandler.RegisterRoutes(router)

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: router,
	}
}

func (a *App) Start() error {
	go func() {
		a.logger.Info("HTTP server listening", "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	a.logger.Info("Application started successfully")
	return nil
}

func (a *App) Stop() error {
	a.logger.Info("Stopping application...")

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP shutdown error", "error", err)
		}
	}

	for _, cleanup := range a.cleanup {
		if err := cleanup(); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}

	a.logger.Info("Application stopped")
	_ = a.logger.Sync()

	return nil
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()
		a.logger.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
