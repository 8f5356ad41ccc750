package services

import (
	"context"
	"time"

	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
)

// UserStore is the persistence the user service needs.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUser(ctx context.Context, id string, u repositories.UserUpdate) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) (*models.User, error)
}

// ChatStore is the persistence the chat service needs.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	FindChatByID(ctx context.Context, id string) (*models.Chat, error)
	FindChatsByUserID(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ChatPage, error)
	UpdateChat(ctx context.Context, id, title string) (*models.Chat, error)
	UpdateChatTimestamp(ctx context.Context, id string, at time.Time) error
	DeleteChat(ctx context.Context, id string) error
	VerifyChatOwnership(ctx context.Context, chatID, userID string) (bool, error)
}

// MessageStore is the persistence for chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	FindMessageByID(ctx context.Context, id string) (*models.ChatMessage, error)
	FindMessagesByChatID(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	UpdateMessageEmbedding(ctx context.Context, id string, embedding models.JSON) error
}

// VectorStore is the persistence for embedding records.
type VectorStore interface {
	CreateVector(ctx context.Context, vector *models.ChatVector) (*models.ChatVector, error)
	SemanticSearch(ctx context.Context, userID string, query []float32, limit int) ([]models.ChatVector, error)
}

// Completer produces assistant replies from a chat history.
type Completer interface {
	GenerateResponse(ctx context.Context, history []models.ChatMessage) (string, error)
	StreamResponse(ctx context.Context, history []models.ChatMessage, onChunk func(chunk string) error) (string, error)
}

// MessageEmbedder indexes a message for later semantic search.
type MessageEmbedder interface {
	CreateMessageEmbedding(ctx context.Context, userID, chatID, messageID, content string) error
}

// UserRegistrar provisions local users for authenticated identities.
type UserRegistrar interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	RegisterOrLoginUserByID(ctx context.Context, id, email string, emailVerified bool) (*models.User, error)
}
