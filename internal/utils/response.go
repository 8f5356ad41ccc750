package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Status:    status,
		Message:   message,
		Ok:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
		Type:      errorType,
	})
}

// AppErrorResponse translates a service error into its HTTP response. The
// full error, including the originating operation, only reaches the log.
func AppErrorResponse(c *fiber.Ctx, log *logger.Logger, err error) error {
	var appErr *types.Error
	if !errors.As(err, &appErr) {
		appErr = types.NewInternalError("", "unexpected error", err)
	}

	status := appErr.Status()
	if status >= fiber.StatusInternalServerError {
		log.Error("Request failed", "method", c.Method(), "path", c.Path(), "op", appErr.Op, "error", err)
	} else {
		log.Debug("Request rejected", "method", c.Method(), "path", c.Path(), "op", appErr.Op, "kind", appErr.Kind, "error", err)
	}

	return ErrorResponse(c, appErr.PublicMessage(), status, string(appErr.Kind))
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, string(types.KindNotFound))
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}

// MessageResponseStruct defines the schema for acknowledgements
type MessageResponseStruct struct {
	Message string `json:"message"`
	Ok      bool   `json:"ok"`
}
