package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/types"
	"github.com/localnerve/macroai/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenAuth map[string]string

func (a tokenAuth) Authenticate(_ context.Context, token string) (string, error) {
	if id, ok := a[token]; ok {
		return id, nil
	}
	return "", types.NewUnauthorizedError("test", "invalid or expired credentials")
}

func newTestApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return utils.AppErrorResponse(c, logger.Nop(), err)
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error {
		id, _ := UserID(c)
		return c.SendString(id)
	})
	app.Get("/", handlers...)
	return app
}

func TestAuth(t *testing.T) {
	app := newTestApp(Auth(tokenAuth{"good": "u1"}))

	tests := []struct {
		header string
		status int
	}{
		{"Bearer good", fiber.StatusOK},
		{"bearer good", fiber.StatusOK},
		{"Bearer bad", fiber.StatusUnauthorized},
		{"Basic good", fiber.StatusUnauthorized},
		{"Bearer ", fiber.StatusUnauthorized},
		{"", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, "header %q", tt.header)
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 2, logger.Nop())
	app := newTestApp(Auth(tokenAuth{"a": "u1", "b": "u2"}), rl.Handler())

	call := func(token string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, call("a"))
	assert.Equal(t, fiber.StatusOK, call("a"))
	assert.Equal(t, fiber.StatusTooManyRequests, call("a"))
	assert.Equal(t, fiber.StatusOK, call("b"), "limits are per user")
}

func TestRateLimiterRetryAfter(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1, logger.Nop())
	app := newTestApp(rl.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(time.Minute, 5, logger.Nop())
	rl.now = func() time.Time { return now }

	rl.getLimiter("u1")
	now = now.Add(2 * time.Minute)
	rl.getLimiter("u2")
	rl.Cleanup()

	assert.NotContains(t, rl.visitors, "u1")
	assert.Contains(t, rl.visitors, "u2")
}

func TestAuthFailuresLimitsRejectedTokens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(time.Minute, 2, logger.Nop())
	rl.now = func() time.Time { return now }
	app := newTestApp(rl.AuthFailures(), Auth(tokenAuth{"good": "u1"}))

	call := func(token string) *http.Response {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	// accepted tokens never spend the failure budget
	for i := 0; i < 3; i++ {
		assert.Equal(t, fiber.StatusOK, call("good").StatusCode)
	}

	assert.Equal(t, fiber.StatusUnauthorized, call("bad").StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, call("bad").StatusCode)

	resp := call("bad")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))
	assert.Equal(t, fiber.StatusTooManyRequests, call("good").StatusCode, "blocked before the token is checked")

	now = now.Add(30 * time.Second)
	assert.Equal(t, fiber.StatusOK, call("good").StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, call("bad").StatusCode)
	assert.Equal(t, fiber.StatusTooManyRequests, call("bad").StatusCode)
}
