package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/zenbanez/docuvoice-ai/internal/models"
)

type ChatRepository interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	// ListByDocument returns the latest limit messages, oldest first.
	ListByDocument(ctx context.Context, ownerID, documentID string, limit int) ([]models.ChatMessage, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepo(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) Insert(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *chatRepo) ListByDocument(ctx context.Context, ownerID, documentID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND document_id = ?", ownerID, documentID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
