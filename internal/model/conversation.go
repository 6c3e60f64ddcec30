package model

import (
	"time"
)

// Conversation scope values. A conversation is pinned to the scope of its
// first turn and cannot be reused with a different repo or group.
const (
	ScopeRepo  = "repo"
	ScopeGroup = "group"
)

// Conversation is a question-answer session bound to one repo or group.
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Scope     string    `json:"scope" gorm:"type:varchar(16);not null"`
	ScopeID   string    `json:"scope_id" gorm:"type:varchar(128);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ConversationMessage is one turn in a conversation. Seq is assigned
// inside the append transaction and is strictly increasing per conversation.
type ConversationMessage struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID string    `json:"conversation_id" gorm:"type:varchar(64);uniqueIndex:uk_conv_seq,priority:1;not null"`
	Seq            int       `json:"seq" gorm:"uniqueIndex:uk_conv_seq,priority:2;not null"`
	Role           string    `json:"role" gorm:"type:varchar(16);not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for ConversationMessage.
func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
