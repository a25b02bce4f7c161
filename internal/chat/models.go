package chat

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/ai"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

const (
	MessageTypeText               = "text"
	MessageTypeSuggestCartsResult = "suggest_carts_result"
)

// Session history is append-only; sessions are never mutated or deleted.
type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatSessionID     uint64    `gorm:"index;not null" json:"chat_session_id"`
	Content           string    `gorm:"type:varchar(1000);not null" json:"content"`
	Sender            string    `gorm:"type:varchar(50);not null" json:"sender"`
	ProviderMessageID *string   `gorm:"type:varchar(100)" json:"provider_message_id,omitempty"`
	MessageType       string    `gorm:"type:varchar(50);not null;default:text" json:"message_type"`
	CreatedAt         time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// Payload is the classifier-extracted free-text need, stored as JSON.
type Payload struct {
	Input string `json:"input"`
}

func (p Payload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Payload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*p = Payload{}
		return nil
	default:
		return fmt.Errorf("chat: cannot scan payload from %T", src)
	}
	return json.Unmarshal(raw, p)
}

func (Payload) GormDataType() string { return "json" }

func (Payload) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// MessageAction is the single source of truth for whether a suggestion has
// been acted on. State moves strictly forward: pending, confirmed, executed.
type MessageAction struct {
	ID            uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatMessageID uint64        `gorm:"not null;uniqueIndex:uniq_message_action,priority:1" json:"chat_message_id"`
	ActionType    ai.ActionType `gorm:"type:varchar(50);not null;uniqueIndex:uniq_message_action,priority:2" json:"action_type"`
	Payload       Payload       `gorm:"not null" json:"payload"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
	ExecutedAt    *time.Time    `json:"executed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (MessageAction) TableName() string { return "chat_messages_actions" }
