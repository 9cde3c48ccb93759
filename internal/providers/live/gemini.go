package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"
)

// Gemini opens sessions against the Gemini Live API.
type Gemini struct {
	keys KeySource
}

func NewGemini(keys KeySource) *Gemini {
	return &Gemini{keys: keys}
}

func (g *Gemini) Connect(ctx context.Context, cfg Config) (Stream, error) {
	if cfg.Model == "" {
		return nil, errors.New("live model is required")
	}
	key, err := g.keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	sess, err := client.Live.Connect(ctx, cfg.Model, connectConfig(cfg))
	if err != nil {
		return nil, err
	}
	return newGeminiStream(sess), nil
}

func connectConfig(cfg Config) *genai.LiveConnectConfig {
	out := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if cfg.SystemInstruction != "" {
		out.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	if cfg.Voice != "" {
		out.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.InputTranscription {
		out.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.OutputTranscription {
		out.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return out
}

// geminiSession is the subset of *genai.Session the stream uses.
type geminiSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type geminiStream struct {
	sess    geminiSession
	sendMu  sync.Mutex
	closed  atomic.Bool
	pending []Message // touched only by the receiving goroutine
}

func newGeminiStream(sess geminiSession) *geminiStream {
	return &geminiStream{sess: sess}
}

func (s *geminiStream) SendAudio(_ context.Context, data []byte, mimeType string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.sess.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (s *geminiStream) Receive(ctx context.Context) (Message, error) {
	for len(s.pending) == 0 {
		if s.closed.Load() {
			return Message{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		msg, err := s.sess.Receive()
		if err != nil {
			if s.closed.Load() {
				return Message{}, ErrClosed
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return Message{Kind: KindClosed, Reason: ce.Text}, nil
			}
			return Message{}, err
		}
		s.pending = Translate(msg)
	}

	m := s.pending[0]
	s.pending = s.pending[1:]
	return m, nil
}

func (s *geminiStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.sess.Close()
}

// Translate splits one server message into ordered events: transcripts, turn-complete,
// audio, interrupted.
func Translate(msg *genai.LiveServerMessage) []Message {
	if msg == nil {
		return nil
	}
	var out []Message

	sc := msg.ServerContent
	if sc != nil {
		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			out = append(out, Message{Kind: KindOutputTranscript, Text: t.Text})
		}
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			out = append(out, Message{Kind: KindInputTranscript, Text: t.Text})
		}
		if sc.TurnComplete {
			out = append(out, Message{Kind: KindTurnComplete})
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
					continue
				}
				out = append(out, Message{
					Kind:     KindAudio,
					Audio:    p.InlineData.Data,
					MIMEType: p.InlineData.MIMEType,
				})
			}
		}
		if sc.Interrupted {
			out = append(out, Message{Kind: KindInterrupted})
		}
	}
	return out
}
