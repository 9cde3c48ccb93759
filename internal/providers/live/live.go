package live

import (
	"context"
	"errors"
)

// Kind identifies an inbound live message.
type Kind int

const (
	KindInputTranscript Kind = iota
	KindOutputTranscript
	KindAudio
	KindTurnComplete
	KindInterrupted
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindInputTranscript:
		return "input_transcript"
	case KindOutputTranscript:
		return "output_transcript"
	case KindAudio:
		return "audio"
	case KindTurnComplete:
		return "turn_complete"
	case KindInterrupted:
		return "interrupted"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Message is one inbound event from the live model.
type Message struct {
	Kind     Kind
	Text     string // transcript fragment
	Audio    []byte // PCM16 LE, 24kHz mono
	MIMEType string
	Reason   string // close reason
}

// Config describes a live session.
type Config struct {
	Model               string
	Voice               string
	SystemInstruction   string
	InputTranscription  bool
	OutputTranscription bool
}

var ErrClosed = errors.New("live stream closed")

// Provider opens bidirectional live sessions.
type Provider interface {
	Connect(ctx context.Context, cfg Config) (Stream, error)
}

// Stream is one open live session.
type Stream interface {
	// SendAudio transmits one PCM block. It returns ErrClosed once the stream is closed.
	SendAudio(ctx context.Context, data []byte, mimeType string) error
	// Receive blocks until the next message. It returns ErrClosed after Close.
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// KeySource yields the API key used to open a session.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}
