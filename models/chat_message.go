package models

import "time"

// Chat roles stored in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxChatContentRunes bounds a single user message.
const MaxChatContentRunes = 4000

// ChatMessage is one line of a user's append-only support chat transcript.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_chat_user_created;not null" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_user_created;index" json:"created_at"`
}
