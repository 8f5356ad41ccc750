package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/localnerve/macroai/internal/database"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/testutil"
	"github.com/localnerve/macroai/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres when TEST_POSTGRES_IMAGE names an image,
// e.g. TEST_POSTGRES_IMAGE=postgres:16-alpine go test ./internal/database
func TestPostgresIntegration(t *testing.T) {
	image := os.Getenv("TEST_POSTGRES_IMAGE")
	if testing.Short() || image == "" {
		t.Skip("set TEST_POSTGRES_IMAGE to run against Postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := testutil.StartPostgres(ctx, t, image)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Terminate(t) })

	pool, err := database.Connect(ctx, pg.DSN, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(pool) })

	require.NoError(t, database.AutoMigrate(pool.DB))
	assert.Equal(t, database.StatusOK, database.HealthCheck(ctx, pool.DB).Status)

	users := repositories.NewUserRepository(pool.DB)
	chats := repositories.NewChatRepository(pool.DB)
	messages := repositories.NewMessageRepository(pool.DB)

	_, err = users.CreateUser(ctx, &models.User{ID: "pg-user", Email: "pg@example.com"})
	require.NoError(t, err)

	chat, err := chats.CreateChat(ctx, &models.Chat{UserID: "pg-user", Title: "On Postgres"})
	require.NoError(t, err)

	_, err = messages.CreateMessage(ctx, &models.ChatMessage{ChatID: chat.ID, Role: models.RoleUser, Content: "hello"})
	require.NoError(t, err)

	page, err := chats.FindChatsByUserID(ctx, "pg-user", repositories.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = users.CreateUser(ctx, &models.User{ID: "pg-user-3", Email: "pg@example.com"})
	require.Error(t, err)
	assert.Equal(t, types.KindConflict, types.KindOf(err))

	require.NoError(t, chats.DeleteChat(ctx, chat.ID))
	list, err := messages.FindMessagesByChatID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
