package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/localnerve/macroai/internal/models"
	"gorm.io/gorm"
)

// MessageUpdate names the message fields that may change.
type MessageUpdate struct {
	Content  *string
	Metadata *models.JSON
}

// MessageRepository persists chat messages.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage inserts a message, assigning an id when none is set.
func (r *MessageRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return insert(ctx, r.db, "messageRepository - createMessage", msg)
}

// FindMessageByID returns the message or nil when absent.
func (r *MessageRepository) FindMessageByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	return findOne[models.ChatMessage](ctx, r.db, "messageRepository - findMessageById", "id = ?", id)
}

// FindMessagesByChatID returns a chat's messages oldest first.
func (r *MessageRepository) FindMessagesByChatID(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	const op = "messageRepository - findMessagesByChatId"

	messages, err := run(op, func() ([]models.ChatMessage, error) {
		var messages []models.ChatMessage
		err := r.db.WithContext(ctx).
			Where("chat_id = ?", chatID).
			Order("created_at ASC").
			Find(&messages).Error
		return messages, err
	})
	if err != nil {
		return nil, err
	}
	if err := validateRows(op, messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// UpdateMessage applies the non-nil fields of u and returns the stored row.
func (r *MessageRepository) UpdateMessage(ctx context.Context, id string, u MessageUpdate) (*models.ChatMessage, error) {
	updates := map[string]interface{}{}
	if u.Content != nil {
		updates["content"] = *u.Content
	}
	if u.Metadata != nil {
		updates["metadata"] = *u.Metadata
	}
	return update[models.ChatMessage](ctx, r.db, "messageRepository - updateMessage", id, updates)
}

// UpdateMessageEmbedding stores the embedding vector on the message row.
func (r *MessageRepository) UpdateMessageEmbedding(ctx context.Context, id string, embedding models.JSON) error {
	_, err := update[models.ChatMessage](ctx, r.db, "messageRepository - updateMessageEmbedding", id, map[string]interface{}{
		"embedding": embedding,
	})
	return err
}

// DeleteMessage removes a message. Deleting a missing message is NotFound.
func (r *MessageRepository) DeleteMessage(ctx context.Context, id string) error {
	return remove[models.ChatMessage](ctx, r.db, "messageRepository - deleteMessage", id)
}
