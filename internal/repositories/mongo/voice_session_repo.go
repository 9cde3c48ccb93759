package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

type VoiceSessionRepository interface {
	Create(ctx context.Context, s *models.VoiceSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.VoiceSession, error)
	ListByDocument(ctx context.Context, documentID string, limit int64) ([]models.VoiceSession, error)
	SetStatus(ctx context.Context, sessionID string, status models.VoiceSessionStatus, errMsg string) error
	End(ctx context.Context, s *models.VoiceSession) error
}

type voiceSessionRepo struct {
	col *mongo.Collection
}

func NewVoiceSessionRepo(db *mongo.Database) VoiceSessionRepository {
	return &voiceSessionRepo{col: db.Collection("voice_sessions")}
}

func (r *voiceSessionRepo) Create(ctx context.Context, s *models.VoiceSession) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *voiceSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.VoiceSession, error) {
	var s models.VoiceSession
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *voiceSessionRepo) ListByDocument(ctx context.Context, documentID string, limit int64) ([]models.VoiceSession, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.col.Find(ctx,
		bson.M{"document_id": documentID},
		options.Find().
			SetSort(bson.D{{Key: "started_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.VoiceSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *voiceSessionRepo) SetStatus(ctx context.Context, sessionID string, status models.VoiceSessionStatus, errMsg string) error {
	set := bson.M{"status": status}
	if errMsg != "" {
		set["error"] = errMsg
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"session_id": sessionID}, bson.M{"$set": set})
	return err
}

func (r *voiceSessionRepo) End(ctx context.Context, s *models.VoiceSession) error {
	endedAt := time.Now().UTC()
	if s.EndedAt != nil {
		endedAt = s.EndedAt.UTC()
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": s.SessionID},
		bson.M{"$set": bson.M{
			"status":           s.Status,
			"error":            s.Error,
			"stats":            s.Stats,
			"turns":            s.Turns,
			"ended_at":         endedAt,
			"duration_seconds": s.DurationSeconds,
		}},
	)
	return err
}
