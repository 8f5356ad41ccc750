package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/services"
)

// HealthAPI reports dependency health
type HealthAPI interface {
	HealthCheck(ctx context.Context) services.HealthCheckResult
}

// HealthHandler handles the health route
type HealthHandler struct {
	Health HealthAPI
}

// Check handles GET /api/health
// @Summary Health check
// @Description Check database and identity provider reachability
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	result := h.Health.HealthCheck(c.UserContext())
	if !result.Healthy() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
