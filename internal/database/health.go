package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// HealthStatus is the liveness check result for the database.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthCheck runs a trivial query against the live pool. It reports
// failures in the result and never panics.
func HealthCheck(ctx context.Context, db *gorm.DB) (status HealthStatus) {
	defer func() {
		if r := recover(); r != nil {
			status = HealthStatus{Status: StatusError, Message: fmt.Sprintf("database health check failed: %v", r)}
		}
	}()

	if db == nil {
		return HealthStatus{Status: StatusError, Message: "database not initialized"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	if err := db.WithContext(checkCtx).Exec("SELECT 1").Error; err != nil {
		return HealthStatus{Status: StatusError, Message: fmt.Sprintf("database query failed: %v", err)}
	}
	return HealthStatus{Status: StatusOK, Message: "database connection is healthy"}
}
