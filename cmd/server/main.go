package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/localnerve/macroai/internal/app"
	"github.com/localnerve/macroai/internal/config"
	"github.com/localnerve/macroai/internal/logger"
)

// @title Macro AI API
// @version 1.0.0
// @description Chat backend with Cognito authentication and AI replies
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/macroai
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := app.NewBootstrapper(func(ctx context.Context) (*app.App, error) {
		return app.Build(ctx, cfg, appLog)
	}, appLog)

	// A database that stays unreachable through every retry is fatal
	server, err := boot.Get(ctx)
	if err != nil {
		appLog.Fatal("Failed to start application", "error", err)
	}

	// Graceful shutdown
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		appLog.Info("Gracefully shutting down...")
		if err := boot.Close(); err != nil {
			appLog.Error("Shutdown failed", "error", err)
		}
	}()

	appLog.Info("Starting server", "port", cfg.Port)
	if err := server.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("Failed to start server", "error", err)
	}

	<-closed
	appLog.Info("Server stopped")
}
