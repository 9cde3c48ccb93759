package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionEvent is one lifecycle transition of a voice session.
type SessionEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	Seq       int64              `bson:"seq" json:"seq"`

	State   string `bson:"state" json:"state"`
	Message string `bson:"message,omitempty" json:"message,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
