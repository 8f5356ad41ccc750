package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/macroai/internal/database"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func seedUser(t *testing.T, repo *repositories.UserRepository, id string) *models.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), &models.User{ID: id, Email: id + "@example.com"})
	require.NoError(t, err)
	return user
}

func TestUserRepositoryFindAbsentIsNotAnError(t *testing.T) {
	repo := repositories.NewUserRepository(newTestDB(t))

	user, err := repo.FindUserByID(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserRepositoryFailureIsAnError(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository(db)
	closeDB(t, db)

	user, err := repo.FindUserByID(context.Background(), "u1")
	require.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, types.IsKind(err, types.KindDatabase), "got %v", err)
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	repo := repositories.NewUserRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, &models.User{ID: "u1", Email: "Alice@Example.com"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "u1", found.ID)
}

func TestUserRepositoryCreateRejectsInvalidInput(t *testing.T) {
	repo := repositories.NewUserRepository(newTestDB(t))

	_, err := repo.CreateUser(context.Background(), &models.User{ID: "u1", Email: "not-an-email"})
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)
}

func TestUserRepositoryDuplicateIsConflict(t *testing.T) {
	repo := repositories.NewUserRepository(newTestDB(t))
	ctx := context.Background()
	seedUser(t, repo, "u1")

	_, err := repo.CreateUser(ctx, &models.User{ID: "u2", Email: "u1@example.com"})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindConflict), "got %v", err)
	assert.Equal(t, 409, types.StatusFor(types.KindOf(err)))
}

func TestUserRepositoryUpdate(t *testing.T) {
	repo := repositories.NewUserRepository(newTestDB(t))
	ctx := context.Background()
	seedUser(t, repo, "u1")

	first := "Ada"
	updated, err := repo.UpdateUser(ctx, "u1", repositories.UserUpdate{FirstName: &first})
	require.NoError(t, err)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Ada", *updated.FirstName)
	assert.Nil(t, updated.LastName)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	updated, err = repo.UpdateLastLogin(ctx, "u1", at)
	require.NoError(t, err)
	require.NotNil(t, updated.LastLogin)
	assert.True(t, at.Equal(*updated.LastLogin))
}

func TestUserRepositoryUpdateMissingIsInternal(t *testing.T) {
	repo := repositories.NewUserRepository(newTestDB(t))

	first := "Ada"
	user, err := repo.UpdateUser(context.Background(), "ghost", repositories.UserUpdate{FirstName: &first})
	assert.Nil(t, user)
	assert.True(t, types.IsKind(err, types.KindInternal), "got %v", err)

	_, err = repo.UpdateUser(context.Background(), "ghost", repositories.UserUpdate{})
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)
}

func TestChatRepositoryPagination(t *testing.T) {
	db := newTestDB(t)
	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db)
	ctx := context.Background()
	seedUser(t, users, "u1")
	seedUser(t, users, "u2")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := chats.CreateChat(ctx, &models.Chat{UserID: "u1", Title: fmt.Sprintf("chat %02d", i), CreatedAt: at, UpdatedAt: at})
		require.NoError(t, err)
	}
	_, err := chats.CreateChat(ctx, &models.Chat{UserID: "u2", Title: "other"})
	require.NoError(t, err)

	page, err := chats.FindChatsByUserID(ctx, "u1", repositories.Pagination{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Chats, 10)
	assert.Equal(t, "chat 14", page.Chats[0].Title)
	assert.Equal(t, "chat 05", page.Chats[9].Title)

	page, err = chats.FindChatsByUserID(ctx, "u1", repositories.Pagination{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Chats, 5)

	page, err = chats.FindChatsByUserID(ctx, "nobody", repositories.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Chats)
	assert.Empty(t, page.Chats)
	assert.Zero(t, page.Total)
}

func TestChatRepositoryInvalidRowFailsList(t *testing.T) {
	db := newTestDB(t)
	chats := repositories.NewChatRepository(db)
	ctx := context.Background()

	_, err := chats.CreateChat(ctx, &models.Chat{UserID: "u1", Title: "fine"})
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		"INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		"not-a-uuid", "u1", "broken", now, now).Error)

	page, err := chats.FindChatsByUserID(ctx, "u1", repositories.Pagination{Page: 1, Limit: 10})
	assert.Nil(t, page)
	assert.True(t, types.IsKind(err, types.KindInternal), "got %v", err)
}

func TestChatRepositoryOwnershipAndUpdate(t *testing.T) {
	db := newTestDB(t)
	chats := repositories.NewChatRepository(db)
	ctx := context.Background()

	chat, err := chats.CreateChat(ctx, &models.Chat{UserID: "u1", Title: "New Chat"})
	require.NoError(t, err)
	_, err = uuid.Parse(chat.ID)
	require.NoError(t, err)

	owned, err := chats.VerifyChatOwnership(ctx, chat.ID, "u1")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = chats.VerifyChatOwnership(ctx, chat.ID, "u2")
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = chats.VerifyChatOwnership(ctx, uuid.NewString(), "u1")
	require.NoError(t, err)
	assert.False(t, owned)

	renamed, err := chats.UpdateChat(ctx, chat.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)

	later := chat.UpdatedAt.Add(time.Hour)
	require.NoError(t, chats.UpdateChatTimestamp(ctx, chat.ID, later))
	found, err := chats.FindChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, later.Equal(found.UpdatedAt), "want %v got %v", later, found.UpdatedAt)

	_, err = chats.UpdateChat(ctx, uuid.NewString(), "nope")
	assert.True(t, types.IsKind(err, types.KindInternal), "got %v", err)
}

func TestChatRepositoryDeleteRemovesDependents(t *testing.T) {
	db := newTestDB(t)
	chats := repositories.NewChatRepository(db)
	messages := repositories.NewMessageRepository(db)
	vectors := repositories.NewVectorRepository(db)
	ctx := context.Background()

	chat, err := chats.CreateChat(ctx, &models.Chat{UserID: "u1", Title: "doomed"})
	require.NoError(t, err)
	msg, err := messages.CreateMessage(ctx, &models.ChatMessage{ChatID: chat.ID, Role: models.RoleUser, Content: "hello"})
	require.NoError(t, err)
	_, err = vectors.CreateVector(ctx, &models.ChatVector{UserID: "u1", ChatID: chat.ID, MessageID: msg.ID, Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, chats.DeleteChat(ctx, chat.ID))

	found, err := chats.FindChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
	remaining, err := messages.FindMessagesByChatID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	vecs, err := vectors.FindVectorsByChatID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, vecs)

	err = chats.DeleteChat(ctx, chat.ID)
	assert.True(t, types.IsKind(err, types.KindNotFound), "got %v", err)
}

func TestMessageRepositoryOrderAndValidation(t *testing.T) {
	db := newTestDB(t)
	messages := repositories.NewMessageRepository(db)
	ctx := context.Background()
	chatID := uuid.NewString()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, role := range []models.Role{models.RoleUser, models.RoleAssistant, models.RoleUser} {
		_, err := messages.CreateMessage(ctx, &models.ChatMessage{
			ChatID:    chatID,
			Role:      role,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	list, err := messages.FindMessagesByChatID(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"m0", "m1", "m2"}, []string{list[0].Content, list[1].Content, list[2].Content})

	_, err = messages.CreateMessage(ctx, &models.ChatMessage{ChatID: chatID, Role: "robot", Content: "beep"})
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)

	require.NoError(t, db.Exec(
		"INSERT INTO chat_messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), chatID, "robot", "beep", base.Add(time.Minute)).Error)

	list, err = messages.FindMessagesByChatID(ctx, chatID)
	assert.Nil(t, list)
	assert.True(t, types.IsKind(err, types.KindInternal), "got %v", err)
}

func TestMessageRepositoryUpdateAndDelete(t *testing.T) {
	messages := repositories.NewMessageRepository(newTestDB(t))
	ctx := context.Background()

	msg, err := messages.CreateMessage(ctx, &models.ChatMessage{ChatID: uuid.NewString(), Role: models.RoleAssistant, Content: "draft"})
	require.NoError(t, err)

	content := "final"
	updated, err := messages.UpdateMessage(ctx, msg.ID, repositories.MessageUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)

	embedding, err := models.NewJSON([]float32{0.1, 0.2})
	require.NoError(t, err)
	require.NoError(t, messages.UpdateMessageEmbedding(ctx, msg.ID, embedding))

	found, err := messages.FindMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	var vec []float32
	require.NoError(t, found.Embedding.Decode(&vec))
	assert.Equal(t, []float32{0.1, 0.2}, vec)

	require.NoError(t, messages.DeleteMessage(ctx, msg.ID))
	err = messages.DeleteMessage(ctx, msg.ID)
	assert.True(t, types.IsKind(err, types.KindNotFound), "got %v", err)
}

func TestVectorRepositorySemanticSearch(t *testing.T) {
	vectors := repositories.NewVectorRepository(newTestDB(t))
	ctx := context.Background()

	results, err := vectors.SemanticSearch(ctx, "u1", []float32{0.5}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = vectors.SemanticSearch(ctx, "u1", nil, 5)
	assert.True(t, types.IsKind(err, types.KindValidation))

	n, err := vectors.DeleteVectorsByChatID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Zero(t, n)
}
