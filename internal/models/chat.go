package models

import (
	"time"
)

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Chat is a conversation owned by a single user
type Chat struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id" validate:"required,uuid"`
	UserID    string    `gorm:"type:varchar(255);not null;index:idx_chats_user_updated,priority:1" json:"userId" validate:"required,max=255"`
	Title     string    `gorm:"size:255;not null" json:"title" validate:"max=255"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index:idx_chats_user_updated,priority:2" json:"updatedAt"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-" validate:"-"`
}

// TableName overrides the table name for Chat
func (Chat) TableName() string {
	return "chats"
}

// ChatMessage is a single turn in a chat
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id" validate:"required,uuid"`
	ChatID    string    `gorm:"type:uuid;not null;index:idx_chat_messages_chat_created,priority:1" json:"chatId" validate:"required,uuid"`
	Role      Role      `gorm:"type:varchar(16);not null" json:"role" validate:"required,oneof=user assistant system"`
	Content   string    `gorm:"type:text;not null" json:"content" validate:"required"`
	Metadata  JSON      `json:"metadata"`
	Embedding JSON      `json:"-"`
	CreatedAt time.Time `gorm:"index:idx_chat_messages_chat_created,priority:2" json:"createdAt"`
	Chat      *Chat     `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-" validate:"-"`
}

// TableName overrides the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ChatVector is an embedding record for a message. Semantic search over
// these records is not implemented.
type ChatVector struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id" validate:"required,uuid"`
	UserID    string       `gorm:"type:varchar(255);not null;index" json:"userId" validate:"required,max=255"`
	ChatID    string       `gorm:"type:uuid;not null;index" json:"chatId" validate:"required,uuid"`
	MessageID string       `gorm:"type:uuid;not null;index" json:"messageId" validate:"required,uuid"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	Embedding JSON         `json:"-"`
	Metadata  JSON         `json:"metadata"`
	CreatedAt time.Time    `json:"createdAt"`
	Chat      *Chat        `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-" validate:"-"`
	Message   *ChatMessage `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-" validate:"-"`
}

// TableName overrides the table name for ChatVector
func (ChatVector) TableName() string {
	return "chat_vectors"
}
