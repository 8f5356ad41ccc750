// Package app wires configuration, the connection pool, services and the
// HTTP router into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/config"
	"github.com/localnerve/macroai/internal/database"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/middleware"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/services"
)

// App is a built application ready to listen
type App struct {
	Fiber *fiber.App

	pool  *database.Pool
	chats *services.ChatService
	stop  chan struct{}
	log   *logger.Logger
	once  sync.Once
}

// Build connects to the database and the external providers and returns
// the ready application
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	a, err := buildOnPool(ctx, cfg, log, pool)
	if err != nil {
		_ = database.Close(pool)
		return nil, err
	}
	return a, nil
}

func buildOnPool(ctx context.Context, cfg *config.Config, log *logger.Logger, pool *database.Pool) (*App, error) {
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(pool.DB); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cognito, err := services.NewCognitoClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity provider client: %w", err)
	}
	llm, err := services.NewOpenAIModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI model: %w", err)
	}
	embedder, err := services.NewOpenAIEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	userRepo := repositories.NewUserRepository(pool.DB)
	chatRepo := repositories.NewChatRepository(pool.DB)
	messageRepo := repositories.NewMessageRepository(pool.DB)
	vectorRepo := repositories.NewVectorRepository(pool.DB)

	users := services.NewUserService(userRepo, log)
	auth := services.NewAuthService(cognito, cfg, users, log)
	ai := services.NewAIService(llm, cfg.AITimeout, log)
	vectors := services.NewVectorService(embedder, vectorRepo, messageRepo, log)
	chats := services.NewChatService(chatRepo, messageRepo, ai, vectors, log)
	health := services.NewHealthService(pool.DB, cfg.CognitoEndpoint(), log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax, log)
	router := NewRouter(Services{Users: users, Chats: chats, Auth: auth, Health: health}, limiter, log,
		RouterOptions{AccessLog: true, Metrics: true})

	return New(router, pool, chats, limiter, cfg.RateLimitWindow, log), nil
}

// New assembles an App around a built router. pool, chats and limiter may
// be nil. A positive cleanupInterval starts limiter cleanup until Close.
func New(router *fiber.App, pool *database.Pool, chats *services.ChatService, limiter *middleware.RateLimiter, cleanupInterval time.Duration, log *logger.Logger) *App {
	a := &App{Fiber: router, pool: pool, chats: chats, stop: make(chan struct{}), log: log}
	if limiter != nil && cleanupInterval > 0 {
		limiter.StartCleanup(cleanupInterval, a.stop)
	}
	return a
}

// Listen serves HTTP on addr until Shutdown
func (a *App) Listen(addr string) error {
	return a.Fiber.Listen(addr)
}

// Close stops accepting requests, waits for background embedding work and
// releases the pool. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	a.once.Do(func() {
		if err := a.Fiber.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down server: %w", err))
		}
		close(a.stop)
		if a.chats != nil {
			a.chats.Drain()
		}
		if err := database.Close(a.pool); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		a.log.Info("Application closed")
	})
	return errors.Join(errs...)
}
