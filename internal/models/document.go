package models

import (
	"time"

	"github.com/lib/pq"
)

type DocumentStatus string

const (
	DocumentSummarizing DocumentStatus = "summarizing"
	DocumentReady       DocumentStatus = "ready"
	DocumentFailed      DocumentStatus = "failed"
)

type Document struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID    string `gorm:"column:owner_id;type:text;index" json:"owner_id"`
	Name       string `gorm:"column:name;type:text" json:"name"`
	ObjectPath string `gorm:"column:object_path;type:text" json:"-"`

	Size     int64  `gorm:"column:size;type:bigint" json:"size"`
	MimeType string `gorm:"column:mime_type;type:text" json:"mime_type"`
	SHA256   string `gorm:"column:sha256;type:char(64);index" json:"sha256"`

	Status   DocumentStatus `gorm:"column:status;type:text;index" json:"status"`
	Summary  string         `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Sections pq.StringArray `gorm:"column:sections;type:text[]" json:"sections,omitempty"` // markdown headings of the summary
	Error    string         `gorm:"column:error;type:text" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }
