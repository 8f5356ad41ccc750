package services

import (
	"context"
	"sync"
	"time"

	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/types"
)

// Chat input bounds
const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	MaxTitleLength   = 255
	MaxMessageLength = 10000
	DefaultChatTitle = "New Chat"
	EmbeddingTimeout = 30 * time.Second
)

// CreateChatInput is a request to start a chat.
type CreateChatInput struct {
	UserID string `json:"-" validate:"required"`
	Title  string `json:"title" validate:"required,min=1,max=255"`
}

// UpdateChatInput is a request to rename a chat.
type UpdateChatInput struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

// SendMessageInput is a message from the user to a chat.
type SendMessageInput struct {
	ChatID  string      `json:"-" validate:"required"`
	UserID  string      `json:"-" validate:"required"`
	Content string      `json:"content" validate:"required,max=10000"`
	Role    models.Role `json:"role" validate:"omitempty,oneof=user assistant system"`
}

// ChatWithMessages is a chat and its history, oldest message first.
type ChatWithMessages struct {
	models.Chat
	Messages []models.ChatMessage `json:"messages"`
}

// SendMessageResult pairs the stored user message with the assistant reply.
type SendMessageResult struct {
	UserMessage *models.ChatMessage `json:"userMessage"`
	AIMessage   *models.ChatMessage `json:"aiMessage"`
}

// ChatService implements the chat use cases.
type ChatService struct {
	chats    ChatStore
	messages MessageStore
	ai       Completer
	embedder MessageEmbedder
	log      *logger.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

func NewChatService(chats ChatStore, messages MessageStore, ai Completer, embedder MessageEmbedder, log *logger.Logger) *ChatService {
	return &ChatService{
		chats:    chats,
		messages: messages,
		ai:       ai,
		embedder: embedder,
		log:      log,
		now:      time.Now,
	}
}

// CreateChat validates and persists a new chat.
func (s *ChatService) CreateChat(ctx context.Context, input CreateChatInput) (*models.Chat, error) {
	const op = "chatService - createChat"
	if input.Title == "" {
		input.Title = DefaultChatTitle
	}
	if err := models.Validate(input); err != nil {
		return nil, types.NewValidationError(op, models.ValidationMessage(err))
	}

	chat, err := s.chats.CreateChat(ctx, &models.Chat{UserID: input.UserID, Title: input.Title})
	if err != nil {
		s.log.Error("Failed to create chat", "op", op, "user_id", input.UserID, "error", err)
		return nil, err
	}
	return chat, nil
}

// NormalizePagination applies defaults to zero values and rejects
// out-of-range values.
func NormalizePagination(p repositories.Pagination) (repositories.Pagination, error) {
	const op = "chatService - pagination"
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Page < 1 {
		return p, types.NewValidationError(op, "page must be at least 1")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, types.NewValidationError(op, "limit must be between 1 and 100")
	}
	return p, nil
}

// GetUserChats returns one page of the user's chats.
func (s *ChatService) GetUserChats(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ChatPage, error) {
	const op = "chatService - getUserChats"
	if userID == "" {
		return nil, types.NewValidationError(op, "user id is required")
	}
	p, err := NormalizePagination(p)
	if err != nil {
		return nil, err
	}
	return s.chats.FindChatsByUserID(ctx, userID, p)
}

// GetChatWithMessages returns a chat the user owns with its history.
func (s *ChatService) GetChatWithMessages(ctx context.Context, chatID, userID string) (*ChatWithMessages, error) {
	const op = "chatService - getChatWithMessages"
	if chatID == "" || userID == "" {
		return nil, types.NewValidationError(op, "chat id and user id are required")
	}

	chat, err := s.chats.FindChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, types.NewNotFoundError(op, "chat not found")
	}
	if chat.UserID != userID {
		return nil, types.NewUnauthorizedError(op, "not authorized to access this chat")
	}

	messages, err := s.messages.FindMessagesByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &ChatWithMessages{Chat: *chat, Messages: messages}, nil
}

// UpdateChat renames a chat the user owns.
func (s *ChatService) UpdateChat(ctx context.Context, chatID, userID string, input UpdateChatInput) (*models.Chat, error) {
	const op = "chatService - updateChat"
	if err := models.Validate(input); err != nil {
		return nil, types.NewValidationError(op, models.ValidationMessage(err))
	}
	if err := s.requireOwner(ctx, op, chatID, userID); err != nil {
		return nil, err
	}
	return s.chats.UpdateChat(ctx, chatID, input.Title)
}

// DeleteChat removes a chat the user owns with all of its messages.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) error {
	const op = "chatService - deleteChat"
	if err := s.requireOwner(ctx, op, chatID, userID); err != nil {
		return err
	}
	if err := s.chats.DeleteChat(ctx, chatID); err != nil {
		s.log.Error("Failed to delete chat", "op", op, "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

// SendMessage stores the user's message, asks the AI for a reply and
// stores that too. Embedding failures never fail the call.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	return s.exchange(ctx, "chatService - sendMessage", input, s.ai.GenerateResponse)
}

// StreamMessage is SendMessage with the reply handed to onChunk as it is
// generated. The reply is stored once the stream completes.
func (s *ChatService) StreamMessage(ctx context.Context, input SendMessageInput, onChunk func(chunk string) error) (*SendMessageResult, error) {
	return s.exchange(ctx, "chatService - streamMessage", input,
		func(ctx context.Context, history []models.ChatMessage) (string, error) {
			return s.ai.StreamResponse(ctx, history, onChunk)
		})
}

type replyFunc func(ctx context.Context, history []models.ChatMessage) (string, error)

// PrepareMessage defaults the role, validates the input and checks the
// sender owns the chat. It returns the input an exchange will store.
func (s *ChatService) PrepareMessage(ctx context.Context, input SendMessageInput) (SendMessageInput, error) {
	return s.prepare(ctx, "chatService - prepareMessage", input)
}

func (s *ChatService) prepare(ctx context.Context, op string, input SendMessageInput) (SendMessageInput, error) {
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if err := models.Validate(input); err != nil {
		return input, types.NewValidationError(op, models.ValidationMessage(err))
	}
	if err := s.requireOwner(ctx, op, input.ChatID, input.UserID); err != nil {
		return input, err
	}
	return input, nil
}

func (s *ChatService) exchange(ctx context.Context, op string, input SendMessageInput, reply replyFunc) (*SendMessageResult, error) {
	input, err := s.prepare(ctx, op, input)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.messages.CreateMessage(ctx, &models.ChatMessage{
		ChatID:  input.ChatID,
		Role:    input.Role,
		Content: input.Content,
	})
	if err != nil {
		s.log.Error("Failed to store user message", "op", op, "chat_id", input.ChatID, "error", err)
		return nil, err
	}
	s.embedLater(input.UserID, userMessage)

	history, err := s.messages.FindMessagesByChatID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}

	text, err := reply(ctx, history)
	if err != nil {
		return nil, err
	}

	aiMessage, err := s.messages.CreateMessage(ctx, &models.ChatMessage{
		ChatID:  input.ChatID,
		Role:    models.RoleAssistant,
		Content: text,
	})
	if err != nil {
		s.log.Error("Failed to store AI message", "op", op, "chat_id", input.ChatID, "error", err)
		return nil, err
	}
	s.embedLater(input.UserID, aiMessage)

	if err := s.chats.UpdateChatTimestamp(ctx, input.ChatID, s.now()); err != nil {
		return nil, err
	}

	return &SendMessageResult{UserMessage: userMessage, AIMessage: aiMessage}, nil
}

// Drain waits for background embedding work to finish.
func (s *ChatService) Drain() {
	s.wg.Wait()
}

// requireOwner turns a failed ownership check into an Unauthorized error.
func (s *ChatService) requireOwner(ctx context.Context, op, chatID, userID string) error {
	if chatID == "" || userID == "" {
		return types.NewValidationError(op, "chat id and user id are required")
	}
	owned, err := s.chats.VerifyChatOwnership(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return types.NewUnauthorizedError(op, "not authorized to access this chat")
	}
	return nil
}

// embedLater indexes a message in the background. Failures are logged.
func (s *ChatService) embedLater(userID string, msg *models.ChatMessage) {
	if s.embedder == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), EmbeddingTimeout)
		defer cancel()

		if err := s.embedder.CreateMessageEmbedding(ctx, userID, msg.ChatID, msg.ID, msg.Content); err != nil {
			s.log.Warn("Failed to create message embedding", "chat_id", msg.ChatID, "message_id", msg.ID, "error", err)
		}
	}()
}
