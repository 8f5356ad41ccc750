package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/localnerve/macroai/internal/config"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// SystemPrompt leads every completion request.
const SystemPrompt = `You are Macro AI, a helpful assistant. Answer clearly and concisely.
Use the conversation so far as context. If you do not know something, say so.`

// AIService produces assistant replies through an LLM.
type AIService struct {
	llm     llms.Model
	timeout time.Duration
	log     *logger.Logger
}

// NewOpenAIModel creates the chat model from configuration.
func NewOpenAIModel(cfg *config.Config) (llms.Model, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	model, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.OpenAIModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return model, nil
}

func NewAIService(llm llms.Model, timeout time.Duration, log *logger.Logger) *AIService {
	return &AIService{llm: llm, timeout: timeout, log: log}
}

// GenerateResponse returns the assistant reply to the history.
func (s *AIService) GenerateResponse(ctx context.Context, history []models.ChatMessage) (string, error) {
	return s.complete(ctx, "aiService - generateResponse", history)
}

// StreamResponse returns the assistant reply to the history, handing each
// chunk to onChunk as it arrives. An onChunk error stops the stream.
func (s *AIService) StreamResponse(ctx context.Context, history []models.ChatMessage, onChunk func(chunk string) error) (string, error) {
	return s.complete(ctx, "aiService - streamResponse", history,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}))
}

func (s *AIService) complete(ctx context.Context, op string, history []models.ChatMessage, opts ...llms.CallOption) (string, error) {
	if len(history) == 0 {
		return "", types.NewValidationError(op, "chat history is empty")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := types.Try(op, types.KindInternal, func() (string, error) {
		resp, err := s.llm.GenerateContent(ctx, toMessageContent(history), opts...)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response choices")
		}
		return resp.Choices[0].Content, nil
	})
	if err != nil {
		s.log.Error("AI completion failed", "op", op, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", types.NewInternalError(op, "failed to generate AI response", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", types.NewInternalError(op, "AI response was empty", nil)
	}
	s.log.Debug("AI completion finished", "op", op, "messages", len(history), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// toMessageContent prefixes the system prompt and maps roles onto the
// LLM message types.
func toMessageContent(history []models.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history)+1)
	out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt))
	for _, msg := range history {
		var role llms.ChatMessageType
		switch msg.Role {
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		default:
			role = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}
