package models

import (
	"time"

	"gorm.io/datatypes"
)

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatMessage struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DocumentID string         `gorm:"column:document_id;type:uuid;index" json:"document_id"`
	OwnerID    string         `gorm:"column:owner_id;type:text;index" json:"owner_id"`
	Role       ChatRole       `gorm:"column:role;type:text" json:"role"`
	Content    string         `gorm:"column:content;type:text" json:"content"`
	Timestamp  time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"` // {model, latency_ms, failed}
}

func (ChatMessage) TableName() string { return "chat_messages" }

// ChatMetadata is the shape stored in ChatMessage.Metadata.
type ChatMetadata struct {
	Model     string `json:"model,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
}
