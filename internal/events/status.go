package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Document summary status values published while a summary is produced.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

type Status struct {
	Type       string    `json:"type"` // always "status"
	DocumentID string    `json:"document_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

func Channel(documentID string) string { return "document:" + documentID + ":status" }

type Publisher interface {
	Publish(ctx context.Context, documentID, status, message string) error
}

type Subscriber interface {
	// Subscribe streams status updates until ctx ends or the returned cancel is called.
	Subscribe(ctx context.Context, documentID string) (<-chan Status, func(), error)
}

type RedisStatus struct {
	rdb *redis.Client
}

func NewRedisStatus(rdb *redis.Client) *RedisStatus {
	return &RedisStatus{rdb: rdb}
}

func (r *RedisStatus) Publish(ctx context.Context, documentID, status, message string) error {
	b, err := json.Marshal(Status{
		Type:       "status",
		DocumentID: documentID,
		Status:     status,
		Message:    message,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, Channel(documentID), b).Err()
}

func (r *RedisStatus) Subscribe(ctx context.Context, documentID string) (<-chan Status, func(), error) {
	ps := r.rdb.Subscribe(ctx, Channel(documentID))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan Status, 8)
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			var st Status
			if err := json.Unmarshal([]byte(m.Payload), &st); err != nil {
				continue
			}
			select {
			case out <- st:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}
