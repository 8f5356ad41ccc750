package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/macroai/internal/database"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errBoom = errors.New("boom")

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

// fakeChatStore holds chats in memory and counts mutations.
type fakeChatStore struct {
	mu         sync.Mutex
	chats      map[string]*models.Chat
	owned      *bool
	ownerErr   error
	updates    int
	deletes    int
	timestamps int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: map[string]*models.Chat{}}
}

func (f *fakeChatStore) CreateChat(_ context.Context, chat *models.Chat) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	f.chats[chat.ID] = chat
	return chat, nil
}

func (f *fakeChatStore) FindChatByID(_ context.Context, id string) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats[id], nil
}

func (f *fakeChatStore) FindChatsByUserID(_ context.Context, userID string, p repositories.Pagination) (*repositories.ChatPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &repositories.ChatPage{Chats: []models.Chat{}, Page: p.Page, Limit: p.Limit}
	for _, chat := range f.chats {
		if chat.UserID == userID {
			page.Chats = append(page.Chats, *chat)
		}
	}
	page.Total = int64(len(page.Chats))
	return page, nil
}

func (f *fakeChatStore) UpdateChat(_ context.Context, id, title string) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	chat := f.chats[id]
	chat.Title = title
	return chat, nil
}

func (f *fakeChatStore) UpdateChatTimestamp(context.Context, string, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timestamps++
	return nil
}

func (f *fakeChatStore) DeleteChat(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.chats, id)
	return nil
}

func (f *fakeChatStore) VerifyChatOwnership(_ context.Context, chatID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownerErr != nil {
		return false, f.ownerErr
	}
	if f.owned != nil {
		return *f.owned, nil
	}
	chat, ok := f.chats[chatID]
	return ok && chat.UserID == userID, nil
}

// fakeMessageStore keeps messages in insertion order.
type fakeMessageStore struct {
	mu         sync.Mutex
	messages   []models.ChatMessage
	creates    int
	embeddings int
}

func (f *fakeMessageStore) CreateMessage(_ context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, *msg)
	return msg, nil
}

func (f *fakeMessageStore) FindMessageByID(_ context.Context, id string) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID == id {
			msg := f.messages[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageStore) FindMessagesByChatID(_ context.Context, chatID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ChatMessage{}
	for _, msg := range f.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) UpdateMessageEmbedding(context.Context, string, models.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeddings++
	return nil
}

func (f *fakeMessageStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// fakeCompleter answers with a fixed reply and records the history it saw.
type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	chunks  []string
	err     error
	calls   int
	history []models.ChatMessage
}

func (f *fakeCompleter) GenerateResponse(_ context.Context, history []models.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) StreamResponse(ctx context.Context, history []models.ChatMessage, onChunk func(string) error) (string, error) {
	for _, chunk := range f.chunks {
		if err := onChunk(chunk); err != nil {
			return "", err
		}
	}
	return f.GenerateResponse(ctx, history)
}

// fakeEmbedder counts embedding requests and fails when told to.
type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeEmbedder) CreateMessageEmbedding(context.Context, string, string, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func boolPtr(b bool) *bool { return &b }
