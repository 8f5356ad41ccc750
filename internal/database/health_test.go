package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/localnerve/macroai/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               gormlogger.Discard,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestHealthCheckOK(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))

	status := database.HealthCheck(context.Background(), db)

	assert.Equal(t, database.StatusOK, status.Status)
	assert.NotEmpty(t, status.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection reset by peer"))

	status := database.HealthCheck(context.Background(), db)

	assert.Equal(t, database.StatusError, status.Status)
	assert.Contains(t, status.Message, "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckNilDB(t *testing.T) {
	status := database.HealthCheck(context.Background(), nil)
	assert.Equal(t, database.StatusError, status.Status)
}
