package voice

import (
	"errors"
	"strings"
)

var (
	ErrSessionActive = errors.New("voice session already active")
	ErrNoCredential  = errors.New("no api key selected")
	ErrStopped       = errors.New("voice session stopped")
)

// credentialMarker is how the live service reports a key that belongs to no usable project.
const credentialMarker = "entity was not found"

// User-visible messages.
const (
	MsgHandshakeCredential = "Invalid API Project. Please select a key from a paid GCP project."
	MsgHandshakeNetwork    = "Network error: Could not connect to Gemini Live service."
	MsgSessionCredential   = "API Key error. Please re-select a paid project key."
	MsgSessionNetwork      = "The connection encountered a network error."
	MsgNoCredential        = "No API key selected. Please select a key to start a voice session."
)

// ErrorKind groups session failures by remediation.
type ErrorKind int

const (
	ErrorNetwork ErrorKind = iota
	ErrorCredential
	ErrorCapture
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorCredential:
		return "credential"
	case ErrorCapture:
		return "capture"
	default:
		return "network"
	}
}

// SessionError is a failure surfaced to the user.
type SessionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *SessionError) Unwrap() error { return e.Err }

// IsCredentialError reports whether err text marks an invalid or unauthorized key.
func IsCredentialError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), credentialMarker)
}

// classifyHandshake maps a failed connect into a user-visible error.
func classifyHandshake(err error) *SessionError {
	if IsCredentialError(err) {
		return &SessionError{Kind: ErrorCredential, Message: MsgHandshakeCredential, Err: err}
	}
	return &SessionError{Kind: ErrorNetwork, Message: MsgHandshakeNetwork, Err: err}
}

// classifyRemote maps a mid-session transport error into a user-visible error.
func classifyRemote(err error) *SessionError {
	if IsCredentialError(err) {
		return &SessionError{Kind: ErrorCredential, Message: MsgSessionCredential, Err: err}
	}
	return &SessionError{Kind: ErrorNetwork, Message: MsgSessionNetwork, Err: err}
}
