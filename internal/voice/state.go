// Package voice manages one real-time voice conversation about a document: microphone blocks
// stream up to the live model, synthesized audio and transcripts stream back down.
package voice

// State is the lifecycle state of a voice session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Active reports whether a session in this state holds (or is acquiring) a remote stream.
func (s State) Active() bool {
	return s == StateConnecting || s == StateOpen
}

// DocumentContext is the document a session talks about.
type DocumentContext struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}
