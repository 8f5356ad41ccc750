// router.go
//
// Macro AI chat service backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of macroai.
// macroai is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// macroai is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with macroai.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package app

import (
	"errors"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/macroai/internal/handlers"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/middleware"
	"github.com/localnerve/macroai/internal/utils"

	_ "github.com/localnerve/macroai/docs/api" // Swagger docs
)

// Authenticator verifies bearer tokens and exchanges credentials for them
type Authenticator interface {
	middleware.Authenticator
	handlers.AuthAPI
}

// Services are the operations the router exposes
type Services struct {
	Users  handlers.UserAPI
	Chats  handlers.ChatAPI
	Auth   Authenticator
	Health handlers.HealthAPI
}

// RouterOptions tune the fiber app
type RouterOptions struct {
	AccessLog bool
	Metrics   bool
}

// NewRouter builds the fiber app and mounts every route under /api
func NewRouter(svc Services, limiter *middleware.RateLimiter, log *logger.Logger, opts RouterOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "macroai",
		ErrorHandler:          errorHandler(log),
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderAccept) == "text/event-stream"
		},
	}))

	// Prometheus metrics
	if opts.Metrics {
		prometheus := fiberprometheus.New("macroai")
		prometheus.RegisterAt(app, "/metrics")
		app.Use(prometheus.Middleware)
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	userHandler := &handlers.UserHandler{Users: svc.Users, Log: log}
	chatHandler := &handlers.ChatHandler{Chats: svc.Chats, Log: log}
	authHandler := &handlers.AuthHandler{Auth: svc.Auth, Log: log}
	healthHandler := &handlers.HealthHandler{Health: svc.Health}

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)

	// Public auth routes are limited per client IP
	auth := api.Group("/auth", limiter.Handler())
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Users and chats require a bearer token and are limited per user.
	// Rejected tokens are limited per client IP ahead of authentication.
	protect := []fiber.Handler{limiter.AuthFailures(), middleware.Auth(svc.Auth), limiter.Handler()}

	users := api.Group("/users", protect...)
	users.Get("/me", userHandler.GetMe)
	users.Patch("/me", userHandler.UpdateMe)
	users.Get("/:id", userHandler.GetUser)

	chats := api.Group("/chats", protect...)
	chats.Post("/", chatHandler.CreateChat)
	chats.Get("/", chatHandler.ListChats)
	chats.Get("/:id", chatHandler.GetChat)
	chats.Patch("/:id", chatHandler.UpdateChat)
	chats.Delete("/:id", chatHandler.DeleteChat)
	chats.Post("/:id/messages", chatHandler.SendMessage)
	chats.Post("/:id/messages/stream", chatHandler.StreamMessage)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})

	return app
}

// errorHandler writes the standard error envelope for anything a handler
// or middleware returns
func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return utils.ErrorResponse(c, fiberErr.Message, fiberErr.Code, "http")
		}
		return utils.AppErrorResponse(c, log, err)
	}
}
