package services

import (
	"context"
	"fmt"

	"github.com/localnerve/macroai/internal/config"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// VectorService embeds messages and searches them.
type VectorService struct {
	embedder embeddings.Embedder
	vectors  VectorStore
	messages MessageStore
	log      *logger.Logger
}

// NewOpenAIEmbedder creates the embedding model from configuration.
func NewOpenAIEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	llm, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithEmbeddingModel(cfg.OpenAIEmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return embedder, nil
}

func NewVectorService(embedder embeddings.Embedder, vectors VectorStore, messages MessageStore, log *logger.Logger) *VectorService {
	return &VectorService{embedder: embedder, vectors: vectors, messages: messages, log: log}
}

// CreateMessageEmbedding embeds the content and stores it as a vector
// record and on the message itself. A message deleted in the meantime is
// skipped.
func (s *VectorService) CreateMessageEmbedding(ctx context.Context, userID, chatID, messageID, content string) error {
	const op = "vectorService - createMessageEmbedding"
	if userID == "" || chatID == "" || messageID == "" || content == "" {
		return types.NewValidationError(op, "user id, chat id, message id and content are required")
	}

	vec, err := s.embed(ctx, op, content)
	if err != nil {
		return err
	}
	embedding, err := models.NewJSON(vec)
	if err != nil {
		return types.NewInternalError(op, "failed to encode embedding", err)
	}

	msg, err := s.messages.FindMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		s.log.Debug("Message gone before embedding", "chat_id", chatID, "message_id", messageID)
		return nil
	}

	if _, err := s.vectors.CreateVector(ctx, &models.ChatVector{
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
		Content:   content,
		Embedding: embedding,
	}); err != nil {
		return err
	}
	return s.messages.UpdateMessageEmbedding(ctx, messageID, embedding)
}

// SemanticSearch finds stored messages similar to the query. The similarity
// match is not implemented and yields no results.
func (s *VectorService) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]models.ChatVector, error) {
	const op = "vectorService - semanticSearch"
	if query == "" {
		return nil, types.NewValidationError(op, "query is required")
	}
	if limit <= 0 {
		limit = 5
	}

	vec, err := s.embed(ctx, op, query)
	if err != nil {
		return nil, err
	}
	return s.vectors.SemanticSearch(ctx, userID, vec, limit)
}

func (s *VectorService) embed(ctx context.Context, op, text string) ([]float32, error) {
	vec, err := types.Try(op, types.KindInternal, func() ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, types.NewInternalError(op, "failed to create embedding", err)
	}
	if len(vec) == 0 {
		return nil, types.NewInternalError(op, "no embedding returned", nil)
	}
	return vec, nil
}
