package llm

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/genai"
)

// GeminiText talks to the Gemini API with an API key.
type GeminiText struct {
	keys      KeySource
	modelName string

	mu     sync.Mutex
	key    string
	client *genai.Client
}

func NewGeminiText(keys KeySource, modelName string) *GeminiText {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiText{keys: keys, modelName: modelName}
}

func (g *GeminiText) Model() string { return g.modelName }

func (g *GeminiText) Close() error { return nil }

// clientFor reuses the client until the selected key changes.
func (g *GeminiText) clientFor(ctx context.Context) (*genai.Client, error) {
	key, err := g.keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.key == key {
		return g.client, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	g.client, g.key = c, key
	return c, nil
}

func (g *GeminiText) Summarize(ctx context.Context, doc []byte, mimeType string) (string, error) {
	c, err := g.clientFor(ctx)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(doc, mimeType),
			genai.NewPartFromText(SummaryPrompt),
		}, genai.RoleUser),
	}
	resp, err := c.Models.GenerateContent(ctx, g.modelName, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty summary")
	}
	return text, nil
}

func (g *GeminiText) StreamChat(ctx context.Context, system string, history []Message, message string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		c, err := g.clientFor(ctx)
		if err != nil {
			errs <- err
			return
		}

		contents := make([]*genai.Content, 0, len(history)+1)
		for _, h := range history {
			contents = append(contents, genai.NewContentFromText(h.Text, genai.Role(h.Role)))
		}
		contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

		var cfg *genai.GenerateContentConfig
		if system != "" {
			cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
		}

		for resp, err := range c.Models.GenerateContentStream(ctx, g.modelName, contents, cfg) {
			if err != nil {
				errs <- err
				return
			}
			if t := resp.Text(); t != "" {
				select {
				case out <- t:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return out, errs
}
