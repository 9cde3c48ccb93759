package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/zenbanez/docuvoice-ai/internal/credentials"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

// printer renders controller events as terminal lines.
type printer struct {
	w  io.Writer
	st styles

	mu   sync.Mutex
	once sync.Once
	done chan struct{}
}

func newPrinter(w io.Writer, st styles) *printer {
	return &printer{w: w, st: st, done: make(chan struct{})}
}

// Done is closed once the session reaches closed or error.
func (p *printer) Done() <-chan struct{} { return p.done }

func (p *printer) OnState(state voice.State, message string) {
	p.mu.Lock()
	switch state {
	case voice.StateConnecting:
		fmt.Fprintln(p.w, p.st.Dim.Render("connecting..."))
	case voice.StateOpen:
		fmt.Fprintln(p.w, p.st.Label.Render("Listening.")+" "+p.st.Dim.Render("Press Ctrl-C to stop."))
	case voice.StateClosed:
		fmt.Fprintln(p.w, p.st.Dim.Render("session closed"))
	case voice.StateError:
		fmt.Fprintln(p.w, p.st.Error.Render("error:")+" "+message)
	}
	p.mu.Unlock()

	if state == voice.StateClosed || state == voice.StateError {
		p.once.Do(func() { close(p.done) })
	}
}

func (p *printer) OnTranscript(string, string) {}

func (p *printer) OnTurn(turn voice.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := strings.TrimSpace(turn.User); s != "" {
		fmt.Fprintln(p.w, p.st.User.Render("You:")+" "+s)
	}
	if s := strings.TrimSpace(turn.AI); s != "" {
		fmt.Fprintln(p.w, p.st.Model.Render("DocuVoice:")+" "+s)
	}
}

type keySetter interface {
	Select(ctx context.Context, key string) error
}

// promptSelector asks for a key on the terminal and stores the answer.
func promptSelector(in io.Reader, out io.Writer, st styles, keys keySetter) credentials.Selector {
	r := bufio.NewReader(in)
	return func(ctx context.Context) error {
		fmt.Fprintln(out, st.Dim.Render("No Gemini API key selected. Paste a key from a paid GCP project."))
		fmt.Fprint(out, st.Label.Render("API key: "))
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		return keys.Select(ctx, line)
	}
}
