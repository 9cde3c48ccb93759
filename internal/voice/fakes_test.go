package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeOutput is an output device with a hand-driven clock.
type fakeOutput struct {
	mu      sync.Mutex
	now     float64
	played  []played
	playErr error
}

type played struct {
	buf     *AudioBuffer
	at      float64
	src     *fakeSource
	onEnded func()
}

type fakeSource struct {
	mu      sync.Mutex
	stopped int
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *fakeSource) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped > 0
}

func (o *fakeOutput) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) SetNow(v float64) {
	o.mu.Lock()
	o.now = v
	o.mu.Unlock()
}

func (o *fakeOutput) Play(buf *AudioBuffer, at float64, onEnded func()) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return nil, o.playErr
	}
	src := &fakeSource{}
	o.played = append(o.played, played{buf: buf, at: at, src: src, onEnded: onEnded})
	return src, nil
}

func (o *fakeOutput) Played() []played {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]played, len(o.played))
	copy(out, o.played)
	return out
}

// fakeMic hands out sample streams fed by the test.
type fakeMic struct {
	mu      sync.Mutex
	opened  []*fakeSampleSource
	openErr error
}

func (m *fakeMic) Open(ctx context.Context) (SampleSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	s := newFakeSampleSource()
	m.opened = append(m.opened, s)
	return s, nil
}

func (m *fakeMic) Last() *fakeSampleSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.opened) == 0 {
		return nil
	}
	return m.opened[len(m.opened)-1]
}

type fakeSampleSource struct {
	chunks    chan []float32
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSampleSource() *fakeSampleSource {
	return &fakeSampleSource{chunks: make(chan []float32, 64), closed: make(chan struct{})}
}

func (s *fakeSampleSource) ReadSamples(ctx context.Context) ([]float32, error) {
	select {
	case c := <-s.chunks:
		return c, nil
	case <-s.closed:
		return nil, errors.New("stream closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSampleSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSampleSource) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeStream is a scripted live session.
type fakeStream struct {
	mu     sync.Mutex
	sent   [][]byte
	mimes  []string
	closed bool
	closes int

	in   chan inbound
	done chan struct{}

	// flood, when set, is returned by every Receive until the stream closes.
	flood *live.Message
}

type inbound struct {
	msg live.Message
	err error
}

func newFakeStream() *fakeStream {
	return &fakeStream{in: make(chan inbound, 64), done: make(chan struct{})}
}

func (s *fakeStream) SendAudio(_ context.Context, data []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return live.ErrClosed
	}
	s.sent = append(s.sent, data)
	s.mimes = append(s.mimes, mimeType)
	return nil
}

func (s *fakeStream) Receive(ctx context.Context) (live.Message, error) {
	if s.flood != nil {
		select {
		case <-s.done:
			return live.Message{}, live.ErrClosed
		case <-ctx.Done():
			return live.Message{}, ctx.Err()
		default:
			time.Sleep(50 * time.Microsecond)
			return *s.flood, nil
		}
	}
	select {
	case in := <-s.in:
		return in.msg, in.err
	case <-s.done:
		return live.Message{}, live.ErrClosed
	case <-ctx.Done():
		return live.Message{}, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *fakeStream) Push(m live.Message) { s.in <- inbound{msg: m} }

func (s *fakeStream) Fail(err error) { s.in <- inbound{err: err} }

func (s *fakeStream) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeStream) Mimes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mimes...)
}

func (s *fakeStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *fakeStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeProvider returns a fresh fakeStream per connect, or blocks until release when gated.
type fakeProvider struct {
	mu       sync.Mutex
	streams  []*fakeStream
	cfgs     []live.Config
	err      error
	block    chan struct{}
	entered  chan struct{}
	flood    *live.Message
	connects int
}

func (p *fakeProvider) Connect(ctx context.Context, cfg live.Config) (live.Stream, error) {
	p.mu.Lock()
	p.connects++
	p.cfgs = append(p.cfgs, cfg)
	block, entered, err, flood := p.block, p.entered, p.err, p.flood
	p.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	s := newFakeStream()
	s.flood = flood
	p.mu.Lock()
	p.streams = append(p.streams, s)
	p.mu.Unlock()
	return s, nil
}

func (p *fakeProvider) Stream(i int) *fakeStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.streams) {
		return nil
	}
	return p.streams[i]
}

func (p *fakeProvider) Connects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects
}

type fakeGate struct {
	mu       sync.Mutex
	has      bool
	selects  int
	selectTo bool
}

func (g *fakeGate) HasSelectedKey(context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.has, nil
}

func (g *fakeGate) OpenSelectKey(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selects++
	if g.selectTo {
		g.has = true
	}
	return nil
}

func (g *fakeGate) Selects() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selects
}

// recObserver records every callback.
type recObserver struct {
	mu          sync.Mutex
	states      []State
	messages    []string
	turns       []Turn
	transcripts [][2]string
}

func (o *recObserver) OnState(s State, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
	o.messages = append(o.messages, msg)
}

func (o *recObserver) OnTranscript(in, out string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transcripts = append(o.transcripts, [2]string{in, out})
}

func (o *recObserver) OnTurn(t Turn) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns = append(o.turns, t)
}

func (o *recObserver) States() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]State(nil), o.states...)
}

func (o *recObserver) Turns() []Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Turn(nil), o.turns...)
}

func (o *recObserver) Saw(s State) bool {
	for _, got := range o.States() {
		if got == s {
			return true
		}
	}
	return false
}
