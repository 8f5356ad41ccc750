package services

import (
	"context"
	"fmt"

	"github.com/localnerve/macroai/internal/database"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/utils"
	"gorm.io/gorm"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status           string            `json:"status"`
	Message          string            `json:"message"`
	Database         string            `json:"database"`
	IdentityProvider string            `json:"identityProvider"`
	Details          map[string]string `json:"details,omitempty"`
}

// Healthy reports whether every dependency is reachable
func (r HealthCheckResult) Healthy() bool {
	return r.Status == StatusHealthy
}

// HealthService checks the service dependencies
type HealthService struct {
	db          *gorm.DB
	identityURL string
	ping        func(ctx context.Context, endpoint string) error
	log         *logger.Logger
}

func NewHealthService(db *gorm.DB, identityURL string, log *logger.Logger) *HealthService {
	return &HealthService{db: db, identityURL: identityURL, ping: utils.PingIdentityProvider, log: log}
}

// WithPinger replaces the identity provider reachability check
func (s *HealthService) WithPinger(ping func(ctx context.Context, endpoint string) error) *HealthService {
	s.ping = ping
	return s
}

// HealthCheck performs a comprehensive health check of the service
func (s *HealthService) HealthCheck(ctx context.Context) HealthCheckResult {
	result := HealthCheckResult{
		Status:  StatusHealthy,
		Message: "all systems operational",
		Details: make(map[string]string),
	}
	var failures []string

	// Check database connectivity
	dbStatus := database.HealthCheck(ctx, s.db)
	if dbStatus.Status != database.StatusOK {
		result.Database = "unreachable"
		result.Details["database_error"] = dbStatus.Message
		failures = append(failures, fmt.Sprintf("database: %s", dbStatus.Message))
		s.log.Error("Health check failed - database", "error", dbStatus.Message)
	} else {
		result.Database = "ok"
	}

	// Check identity provider connectivity
	if err := s.ping(ctx, s.identityURL); err != nil {
		result.IdentityProvider = "unreachable"
		result.Details["identity_provider_error"] = err.Error()
		failures = append(failures, fmt.Sprintf("identity provider: %v", err))
		s.log.Error("Health check failed - identity provider", "error", err)
	} else {
		result.IdentityProvider = "ok"
		result.Details["identity_provider_url"] = s.identityURL
	}

	if len(failures) > 0 {
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("health check failed: %v", failures)
	} else {
		s.log.Debug("Health check passed - all systems operational")
	}

	return result
}
