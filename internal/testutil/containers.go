// Package testutil starts the containers used by integration tests and by
// the cmd/testcontainers development helper. Settings come from the
// environment, usually loaded from a .env file.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultPostgresImage = "postgres:16-alpine"
	postgresPort         = "5432"
	startupTimeout       = 60 * time.Second
)

// PostgresContainer is a running Postgres and the DSN that reaches it
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
}

// Terminate stops the container. t may be nil outside of tests.
func (pc *PostgresContainer) Terminate(t *testing.T) {
	if pc == nil || pc.Container == nil {
		return
	}
	if err := pc.Container.Terminate(context.Background()); err != nil {
		logMessage(t, "Failed to terminate Postgres: %v", err)
	}
}

// StartPostgres runs image (DefaultPostgresImage when empty) and waits
// until it accepts connections
func StartPostgres(ctx context.Context, t *testing.T, image string) (*PostgresContainer, error) {
	if image == "" {
		image = DefaultPostgresImage
	}
	user := getEnv("POSTGRES_USER", "macroai")
	password := getEnv("POSTGRES_PASSWORD", "macroai")
	dbName := getEnv("POSTGRES_DB", "macroai")

	tcpPort, err := nat.NewPort("tcp", postgresPort)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres port: %w", err)
	}

	logMessage(t, "Starting %s", image)
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       dbName,
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(tcpPort),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Postgres: %w", err)
	}
	pc := &PostgresContainer{Container: container}

	host, err := container.Host(ctx)
	if err != nil {
		pc.Terminate(t)
		return nil, fmt.Errorf("failed to get Postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, tcpPort)
	if err != nil {
		pc.Terminate(t)
		return nil, fmt.Errorf("failed to get Postgres port: %w", err)
	}

	pc.DSN = (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%s", host, port.Port()),
		Path:     "/" + dbName,
		RawQuery: "sslmode=disable",
	}).String()

	logMessage(t, "Postgres ready at %s:%s", host, port.Port())
	return pc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
