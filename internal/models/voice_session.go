package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VoiceSessionStatus string

const (
	VoiceConnecting VoiceSessionStatus = "connecting"
	VoiceActive     VoiceSessionStatus = "active"
	VoiceEnded      VoiceSessionStatus = "ended"
	VoiceFailed     VoiceSessionStatus = "failed"
)

type VoiceSession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID     string             `bson:"user_id" json:"user_id"`
	DocumentID string             `bson:"document_id" json:"document_id"`

	Model  string             `bson:"model" json:"model"`
	Voice  string             `bson:"voice" json:"voice"`
	Status VoiceSessionStatus `bson:"status" json:"status"`
	Error  string             `bson:"error,omitempty" json:"error,omitempty"`
	Stats  VoiceSessionStats  `bson:"stats" json:"stats"`
	Turns  []VoiceTurn        `bson:"turns,omitempty" json:"turns,omitempty"`

	StartedAt time.Time  `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}

type VoiceSessionStats struct {
	BlocksSent      uint64 `bson:"blocks_sent" json:"blocks_sent"`
	FragmentsPlayed uint64 `bson:"fragments_played" json:"fragments_played"`
	Interruptions   uint64 `bson:"interruptions" json:"interruptions"`
}

type VoiceTurn struct {
	User string `bson:"user" json:"user"`
	AI   string `bson:"ai" json:"ai"`
}
