package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/services"
	"github.com/localnerve/macroai/internal/types"
	"github.com/localnerve/macroai/internal/utils"
	"github.com/valyala/fasthttp"
)

// ChatAPI is the chat service as seen by the handlers
type ChatAPI interface {
	CreateChat(ctx context.Context, input services.CreateChatInput) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID string, p repositories.Pagination) (*repositories.ChatPage, error)
	GetChatWithMessages(ctx context.Context, chatID, userID string) (*services.ChatWithMessages, error)
	UpdateChat(ctx context.Context, chatID, userID string, input services.UpdateChatInput) (*models.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID string) error
	PrepareMessage(ctx context.Context, input services.SendMessageInput) (services.SendMessageInput, error)
	SendMessage(ctx context.Context, input services.SendMessageInput) (*services.SendMessageResult, error)
	StreamMessage(ctx context.Context, input services.SendMessageInput, onChunk func(chunk string) error) (*services.SendMessageResult, error)
}

// ChatRequest is the body of a create or rename request
type ChatRequest struct {
	Title string `json:"title"`
}

// MessageRequest is the body of a send message request
type MessageRequest struct {
	Content string      `json:"content"`
	Role    models.Role `json:"role,omitempty"`
}

// StreamChunk is the payload of a streamed chunk event
type StreamChunk struct {
	Content string `json:"content"`
}

// ChatHandler handles chat routes
type ChatHandler struct {
	Chats ChatAPI
	Log   *logger.Logger
}

// CreateChat handles POST /api/chats
// @Summary Create a chat
// @Description Start a new chat for the authenticated user
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChatRequest false "Chat title"
// @Success 201 {object} models.Chat
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /chats [post]
func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	var req ChatRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return utils.AppErrorResponse(c, h.Log, err)
		}
	}

	chat, err := h.Chats.CreateChat(c.UserContext(), services.CreateChatInput{UserID: userID, Title: req.Title})
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, chat, fiber.StatusCreated)
}

// ListChats handles GET /api/chats
// @Summary List chats
// @Description List the authenticated user's chats, most recently updated first
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size, 1 to 100 (default 10)"
// @Success 200 {object} repositories.ChatPage
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /chats [get]
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	p, err := parsePagination(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	page, err := h.Chats.GetUserChats(c.UserContext(), userID, p)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, page, fiber.StatusOK)
}

// GetChat handles GET /api/chats/:id
// @Summary Get a chat
// @Description Get a chat with its messages, oldest first
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} services.ChatWithMessages
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /chats/{id} [get]
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, chatID, err := chatParams(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	chat, err := h.Chats.GetChatWithMessages(c.UserContext(), chatID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, chat, fiber.StatusOK)
}

// UpdateChat handles PATCH /api/chats/:id
// @Summary Rename a chat
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body ChatRequest true "New title"
// @Success 200 {object} models.Chat
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /chats/{id} [patch]
func (h *ChatHandler) UpdateChat(c *fiber.Ctx) error {
	userID, chatID, err := chatParams(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	var req ChatRequest
	if err := parseBody(c, &req); err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	chat, err := h.Chats.UpdateChat(c.UserContext(), chatID, userID, services.UpdateChatInput{Title: req.Title})
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, chat, fiber.StatusOK)
}

// DeleteChat handles DELETE /api/chats/:id
// @Summary Delete a chat
// @Description Delete a chat with all of its messages
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /chats/{id} [delete]
func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID, chatID, err := chatParams(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	if err := h.Chats.DeleteChat(c.UserContext(), chatID, userID); err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, utils.MessageResponseStruct{Message: "Chat deleted", Ok: true}, fiber.StatusOK)
}

// SendMessage handles POST /api/chats/:id/messages
// @Summary Send a message
// @Description Store a message and the AI reply to it
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body MessageRequest true "Message"
// @Success 201 {object} services.SendMessageResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	input, err := messageInput(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	result, err := h.Chats.SendMessage(c.UserContext(), input)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, result, fiber.StatusCreated)
}

// StreamMessage handles POST /api/chats/:id/messages/stream
// @Summary Send a message and stream the reply
// @Description Server-sent events: "chunk" events carry reply text, a final "done" event carries the stored messages, "error" reports a failure.
// @Tags Chats
// @Accept json
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body MessageRequest true "Message"
// @Success 200 {object} StreamChunk
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /chats/{id}/messages/stream [post]
func (h *ChatHandler) StreamMessage(c *fiber.Ctx) error {
	input, err := messageInput(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	// Failures known before the stream opens get a plain status code
	ctx := c.UserContext()
	if input, err = h.Chats.PrepareMessage(ctx, input); err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	url := fiberutils.CopyString(c.OriginalURL())

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		result, err := h.Chats.StreamMessage(ctx, input, func(chunk string) error {
			return writeEvent(w, "chunk", StreamChunk{Content: chunk})
		})
		if err != nil {
			h.Log.Warn("Stream message failed", "chat_id", input.ChatID, "error", err)
			_ = writeEvent(w, "error", streamError(err, url))
			return
		}
		if err := writeEvent(w, "done", result); err != nil {
			h.Log.Debug("Stream client went away", "chat_id", input.ChatID, "error", err)
		}
	}))
	return nil
}

func chatParams(c *fiber.Ctx) (userID, chatID string, err error) {
	if userID, err = getUserID(c); err != nil {
		return "", "", err
	}
	if chatID, err = pathID(c, "id"); err != nil {
		return "", "", err
	}
	return userID, chatID, nil
}

func messageInput(c *fiber.Ctx) (services.SendMessageInput, error) {
	userID, chatID, err := chatParams(c)
	if err != nil {
		return services.SendMessageInput{}, err
	}
	var req MessageRequest
	if err := parseBody(c, &req); err != nil {
		return services.SendMessageInput{}, err
	}
	return services.SendMessageInput{ChatID: chatID, UserID: userID, Content: req.Content, Role: req.Role}, nil
}

// writeEvent writes one server-sent event and flushes it to the client
func writeEvent(w *bufio.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), event, payload); err != nil {
		return err
	}
	return w.Flush()
}

func streamError(err error, url string) utils.ErrorResponseStruct {
	var appErr *types.Error
	if !errors.As(err, &appErr) {
		appErr = types.NewInternalError("", "unexpected error", err)
	}
	return utils.ErrorResponseStruct{
		Status:    appErr.Status(),
		Message:   appErr.PublicMessage(),
		Ok:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       url,
		Type:      string(appErr.Kind),
	}
}
