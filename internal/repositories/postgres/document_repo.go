package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

type DocumentRepository interface {
	Insert(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Document, error)
	// ReadyBySHA returns any ready document with the same content, for summary reuse.
	ReadyBySHA(ctx context.Context, sha string) (*models.Document, error)
	SetStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error
	SetSummary(ctx context.Context, id, summary string, sections []string) error
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Insert(ctx context.Context, d *models.Document) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var row models.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *documentRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.Document
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *documentRepo) ReadyBySHA(ctx context.Context, sha string) (*models.Document, error) {
	var row models.Document
	err := r.db.WithContext(ctx).
		Where("sha256 = ? AND status = ?", sha, models.DocumentReady).
		Order("updated_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *documentRepo) SetStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"error":      errMsg,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *documentRepo) SetSummary(ctx context.Context, id, summary string, sections []string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.DocumentReady,
			"summary":    summary,
			"sections":   pq.StringArray(sections),
			"error":      "",
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
