package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisstore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskboard-api/internal/auth"
	"github.com/yukikurage/taskboard-api/internal/config"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/logging"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/router"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/storage"
	"github.com/yukikurage/taskboard-api/internal/validation"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	redisPoolSize     = 10
	rateLimitPrefix   = "taskboard"
)

// backend is the selected persistence layer
type backend struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	pinger database.Pinger
	close  func() error
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*backend, error) {
	if cfg.DBDriver == "mongodb" {
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db, log); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &backend{
			users:  repository.NewMongoUserRepository(db),
			tasks:  repository.NewMongoTaskRepository(db),
			pinger: database.MongoPinger{Client: client},
			close: func() error {
				return client.Disconnect(context.Background())
			},
		}, nil
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, log); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return &backend{
		users:  repository.NewUserRepository(db),
		tasks:  repository.NewTaskRepository(db),
		pinger: database.GormPinger{DB: db},
		close: func() error {
			return database.Close(db)
		},
	}, nil
}

// sessionsAndLimiter uses Redis for both when it is configured, process memory otherwise
func sessionsAndLimiter(cfg *config.Config, log *logrus.Logger) (sessions.Store, middleware.Limiter, func() error, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTExpiresIn.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	addr := cfg.RedisAddr()
	if addr == "" {
		log.Warn("Redis is not configured; using cookie sessions and in-memory rate limiting")
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, middleware.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), func() error { return nil }, nil
	}

	store, err := redisstore.NewStore(redisPoolSize, "tcp", addr, "", cfg.RedisPassword, []byte(cfg.SessionSecret))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}
	store.Options(options)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
	})
	limiter, err := middleware.NewRedisLimiter(client, rateLimitPrefix, cfg.RateLimitRequests, cfg.RateLimitWindow)
	if err != nil {
		log.WithError(err).Warn("Redis rate limit store unavailable; limiting in memory")
		return store, middleware.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), client.Close, nil
	}

	log.WithField("addr", addr).Info("Using Redis for sessions and rate limiting")
	return store, limiter, client.Close, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	if err := validation.Register(); err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	files, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	var generator services.TaskGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = services.NewAIService(cfg.OpenAIAPIKey, log)
	} else {
		log.Warn("openai_api_key is not set; task generation is disabled")
	}

	sessionStore, limiter, closeRedis, err := sessionsAndLimiter(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeRedis()
	}()

	tokens := auth.NewTokenIssuer(cfg.TokenSecret(), cfg.JWTExpiresIn, cfg.JWTIssuer)
	authService := services.NewAuthService(b.users, tokens, log)
	userService := services.NewUserService(b.users, log)
	taskService := services.NewTaskService(b.tasks, b.users, log, services.TaskServiceOptions{
		Storage:           files,
		Generator:         generator,
		MaxUploadFiles:    cfg.UploadMaxFiles,
		MaxUploadFileSize: cfg.UploadMaxFileSize,
	})

	engine := router.New(router.Dependencies{
		Config:       cfg,
		Log:          log,
		Auth:         authService,
		Users:        userService,
		Tasks:        taskService,
		DB:           b.pinger,
		Limiter:      limiter,
		SessionStore: sessionStore,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}
