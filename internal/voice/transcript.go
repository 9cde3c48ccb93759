package voice

import (
	"strings"
	"sync"
)

// Turn is one finished exchange: what the user said and what the model answered.
type Turn struct {
	User string `json:"user"`
	AI   string `json:"ai"`
}

// TranscriptAggregator accumulates streamed transcript fragments into turns.
type TranscriptAggregator struct {
	mu      sync.Mutex
	input   strings.Builder
	output  strings.Builder
	history []Turn
}

// AppendInput appends a fragment of the user's speech and returns the live input text.
func (a *TranscriptAggregator) AppendInput(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.WriteString(text)
	return a.input.String()
}

// AppendOutput appends a fragment of the model's speech and returns the live output text.
func (a *TranscriptAggregator) AppendOutput(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output.WriteString(text)
	return a.output.String()
}

// Finalize captures both buffers as a turn, appends it to history and clears the buffers.
// Snapshot and clear happen under one lock so no fragment can land in between.
func (a *TranscriptAggregator) Finalize() Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := Turn{User: a.input.String(), AI: a.output.String()}
	a.history = append(a.history, t)
	a.input.Reset()
	a.output.Reset()
	return t
}

// Live returns the in-progress input and output text.
func (a *TranscriptAggregator) Live() (input, output string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input.String(), a.output.String()
}

// History returns a copy of the finished turns.
func (a *TranscriptAggregator) History() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Turn, len(a.history))
	copy(out, a.history)
	return out
}

// Reset clears the in-progress buffers. History is kept.
func (a *TranscriptAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.Reset()
	a.output.Reset()
}
