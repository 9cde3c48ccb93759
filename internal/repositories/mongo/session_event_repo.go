package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zenbanez/docuvoice-ai/internal/models"
)

// eventRetention is how long lifecycle events are kept before the TTL index drops them.
const eventRetention = 7 * 24 * time.Hour

type SessionEventRepository interface {
	Append(ctx context.Context, e *models.SessionEvent) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SessionEvent, error)
}

type sessionEventRepo struct {
	col *mongo.Collection
}

func NewSessionEventRepo(db *mongo.Database) SessionEventRepository {
	return &sessionEventRepo{col: db.Collection("session_events")}
}

func (r *sessionEventRepo) Append(ctx context.Context, e *models.SessionEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ExpiresAt.IsZero() {
		e.ExpiresAt = e.Timestamp.Add(eventRetention)
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *sessionEventRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SessionEvent, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "seq", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SessionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
