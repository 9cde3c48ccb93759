package llm

import (
	"context"
	"fmt"
	"strings"
)

// SummaryPrompt asks for the dashboard summary that grounds chat and voice.
const SummaryPrompt = "Please provide a comprehensive summary of this document. Focus on the main topics, " +
	"key facts, and overall structure. Format your response using clean Markdown (with bullet points " +
	"and bold headers) for a dashboard view."

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior chat message.
type Message struct {
	Role Role
	Text string
}

type Provider interface {
	// Summarize reads a whole document and returns a Markdown summary.
	Summarize(ctx context.Context, doc []byte, mimeType string) (string, error)
	// StreamChat answers message given the system instruction and prior history, as a stream of
	// text chunks (incremental).
	StreamChat(ctx context.Context, system string, history []Message, message string) (chunks <-chan string, errs <-chan error)
	Model() string
	Close() error
}

// KeySource yields the API key for key-authenticated backends.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// ChatInstruction is the system instruction for text chat about a document.
func ChatInstruction(name, summary string) string {
	if strings.TrimSpace(summary) == "" {
		summary = "Not provided"
	}
	return fmt.Sprintf("You are a helpful document assistant. You have access to a PDF document named %q. "+
		"The user will ask questions about it. Be precise, refer to the document context provided, and if "+
		"you don't know something based on the doc, say so. Format your answers beautifully using Markdown. "+
		"Summary of document: %s", name, summary)
}

// Options selects and configures a Provider.
type Options struct {
	Backend        string // gemini | vertex
	Model          string
	VertexProject  string
	VertexLocation string
}

// New builds the provider named by opts.Backend. The gemini backend reads its key from keys on
// every call.
func New(ctx context.Context, opts Options, keys KeySource) (Provider, error) {
	switch strings.ToLower(opts.Backend) {
	case "vertex":
		if opts.VertexProject == "" {
			return nil, fmt.Errorf("vertex backend requires a project")
		}
		return NewVertexGemini(ctx, opts.VertexProject, opts.VertexLocation, opts.Model)
	case "gemini", "":
		if keys == nil {
			return nil, fmt.Errorf("gemini backend requires a key source")
		}
		return NewGeminiText(keys, opts.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", opts.Backend)
	}
}
