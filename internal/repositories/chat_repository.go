package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
	"gorm.io/gorm"
)

// ChatPage is one page of a user's chats, most recently updated first.
type ChatPage struct {
	Chats []models.Chat `json:"chats"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ChatRepository persists chats.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateChat inserts a chat, assigning an id when none is set.
func (r *ChatRepository) CreateChat(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	return insert(ctx, r.db, "chatRepository - createChat", chat)
}

// FindChatByID returns the chat or nil when absent.
func (r *ChatRepository) FindChatByID(ctx context.Context, id string) (*models.Chat, error) {
	return findOne[models.Chat](ctx, r.db, "chatRepository - findChatById", "id = ?", id)
}

// FindChatsByUserID returns one page of the user's chats with the total count.
// Any invalid row fails the whole page.
func (r *ChatRepository) FindChatsByUserID(ctx context.Context, userID string, p Pagination) (*ChatPage, error) {
	const op = "chatRepository - findChatsByUserId"

	chats, err := run(op, func() ([]models.Chat, error) {
		var chats []models.Chat
		err := r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("updated_at DESC").
			Order("id").
			Limit(p.Limit).
			Offset(p.Offset()).
			Find(&chats).Error
		return chats, err
	})
	if err != nil {
		return nil, err
	}
	if err := validateRows(op, chats); err != nil {
		return nil, err
	}

	total, err := run(op, func() (int64, error) {
		var n int64
		err := r.db.WithContext(ctx).Model(&models.Chat{}).Where("user_id = ?", userID).Count(&n).Error
		return n, err
	})
	if err != nil {
		return nil, err
	}

	if chats == nil {
		chats = []models.Chat{}
	}
	return &ChatPage{Chats: chats, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// UpdateChat renames a chat and returns the stored row.
func (r *ChatRepository) UpdateChat(ctx context.Context, id, title string) (*models.Chat, error) {
	return update[models.Chat](ctx, r.db, "chatRepository - updateChat", id, map[string]interface{}{
		"title": title,
	})
}

// UpdateChatTimestamp moves a chat's updated time, which orders chat lists.
func (r *ChatRepository) UpdateChatTimestamp(ctx context.Context, id string, at time.Time) error {
	_, err := update[models.Chat](ctx, r.db, "chatRepository - updateChatTimestamp", id, map[string]interface{}{
		"updated_at": at,
	})
	return err
}

// DeleteChat removes a chat with its messages and vectors in one transaction.
func (r *ChatRepository) DeleteChat(ctx context.Context, id string) error {
	const op = "chatRepository - deleteChat"

	deleted, err := run(op, func() (int64, error) {
		var affected int64
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("chat_id = ?", id).Delete(&models.ChatVector{}).Error; err != nil {
				return err
			}
			if err := tx.Where("chat_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
				return err
			}
			res := tx.Where("id = ?", id).Delete(&models.Chat{})
			affected = res.RowsAffected
			return res.Error
		})
		return affected, err
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return types.NewNotFoundError(op, "chat not found")
	}
	return nil
}

// VerifyChatOwnership reports whether the chat exists and belongs to userID.
func (r *ChatRepository) VerifyChatOwnership(ctx context.Context, chatID, userID string) (bool, error) {
	count, err := run("chatRepository - verifyChatOwnership", func() (int64, error) {
		var n int64
		err := r.db.WithContext(ctx).Model(&models.Chat{}).
			Where("id = ? AND user_id = ?", chatID, userID).
			Count(&n).Error
		return n, err
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
