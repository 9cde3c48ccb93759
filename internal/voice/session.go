package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
)

const (
	DefaultModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice = "Zephyr"
)

// CredentialGate is the host's key check-and-select flow.
type CredentialGate interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

// Observer receives display updates. Calls are made from session goroutines and must not block.
type Observer interface {
	OnState(state State, message string)
	OnTranscript(input, output string)
	OnTurn(turn Turn)
}

type nopObserver struct{}

func (nopObserver) OnState(State, string)      {}
func (nopObserver) OnTranscript(string, string) {}
func (nopObserver) OnTurn(Turn)                 {}

// Snapshot is the display state of a controller.
type Snapshot struct {
	State           State  `json:"-"`
	StateName       string `json:"state"`
	Error           string `json:"error,omitempty"`
	Input           string `json:"input"`
	Output          string `json:"output"`
	History         []Turn `json:"history"`
	BlocksSent      uint64 `json:"blocks_sent"`
	FragmentsPlayed uint64 `json:"fragments_played"`
	Interruptions   uint64 `json:"interruptions"`
}

type Option func(*Controller)

func WithCredentialGate(g CredentialGate) Option { return func(c *Controller) { c.gate = g } }

// WithRequireCredential makes the credential gate blocking: start fails when no key is
// selected after the selection flow returns.
func WithRequireCredential(v bool) Option { return func(c *Controller) { c.requireCredential = v } }

func WithObserver(o Observer) Option { return func(c *Controller) { c.observer = o } }

func WithLogger(l logrus.FieldLogger) Option { return func(c *Controller) { c.log = l } }

func WithModel(model, voiceName string) Option {
	return func(c *Controller) {
		if model != "" {
			c.model = model
		}
		if voiceName != "" {
			c.voiceName = voiceName
		}
	}
}

func WithBlockSize(n int) Option { return func(c *Controller) { c.blockSize = n } }

// Controller owns the lifecycle of one voice conversation about one document.
type Controller struct {
	provider          live.Provider
	devices           *Devices
	doc               DocumentContext
	gate              CredentialGate
	requireCredential bool
	observer          Observer
	log               logrus.FieldLogger
	model             string
	voiceName         string
	blockSize         int

	transcript TranscriptAggregator
	bridge     *CaptureBridge

	mu        sync.Mutex
	state     State
	errMsg    string
	gen       uint64
	cancel    context.CancelFunc
	stream    live.Stream
	scheduler *Scheduler
	seq       uint64

	blocksSent    atomic.Uint64
	fragments     atomic.Uint64
	interruptions atomic.Uint64
}

// NewController creates an idle controller.
func NewController(provider live.Provider, devices *Devices, doc DocumentContext, opts ...Option) *Controller {
	c := &Controller{
		provider:  provider,
		devices:   devices,
		doc:       doc,
		observer:  nopObserver{},
		log:       logrus.StandardLogger(),
		model:     DefaultModel,
		voiceName: DefaultVoice,
		blockSize: BlockSize,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("document", doc.Name)
	c.bridge = NewCaptureBridge(c.blockSize, c.log)
	return c
}

// SystemInstruction seeds the live model with the document.
func SystemInstruction(doc DocumentContext) string {
	summary := strings.TrimSpace(doc.Summary)
	if summary == "" {
		summary = "Not provided"
	}
	return fmt.Sprintf("You are a conversational AI assistant named DocuVoice. You are helping a user "+
		"explore a PDF document titled %q. Use the provided document summary to ground your knowledge. "+
		"Be friendly, spoken-word optimized, and concise. SUMMARY: %s", doc.Name, summary)
}

// Start connects a new session. It returns once the session is Open or has failed. The session
// lives until Stop is called or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Active() || c.state == StateClosing {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.gen++
	gen := c.gen
	sessCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateConnecting
	c.errMsg = ""
	c.transcript.Reset()
	c.mu.Unlock()

	context.AfterFunc(sessCtx, func() { c.stopGen(gen) })

	c.observer.OnState(StateConnecting, "")
	c.observer.OnTranscript("", "")

	if err := c.checkCredential(sessCtx); err != nil {
		return c.failStart(sessCtx, gen, err)
	}

	mic, err := c.devices.Microphone()
	if err != nil {
		return c.failStart(sessCtx, gen, captureError(err))
	}
	out, err := c.devices.Output()
	if err != nil {
		return c.failStart(sessCtx, gen, captureError(err))
	}
	src, err := mic.Open(sessCtx)
	if err != nil {
		return c.failStart(sessCtx, gen, captureError(err))
	}

	stream, err := c.provider.Connect(sessCtx, live.Config{
		Model:               c.model,
		Voice:               c.voiceName,
		SystemInstruction:   SystemInstruction(c.doc),
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		_ = src.Close()
		return c.failStart(sessCtx, gen, classifyHandshake(err))
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		_ = stream.Close()
		_ = src.Close()
		return ErrStopped
	}
	c.stream = stream
	// Each session plays on its own scheduler: the previous one is closed and the
	// output may have been reopened since.
	c.scheduler = NewScheduler(out, c.log)
	c.state = StateOpen
	if err := c.bridge.Start(sessCtx, src, func(b AudioBlock) { c.send(sessCtx, gen, b) }); err != nil {
		c.log.WithError(err).Warn("capture bridge start")
	}
	go c.receiveLoop(sessCtx, gen, stream)
	c.mu.Unlock()

	c.log.WithField("model", c.model).Info("voice session open")
	c.observer.OnState(StateOpen, "")
	return nil
}

func captureError(err error) *SessionError {
	return &SessionError{Kind: ErrorCapture, Message: MsgHandshakeNetwork, Err: err}
}

func (c *Controller) checkCredential(ctx context.Context) error {
	if c.gate == nil {
		return nil
	}
	ok, err := c.gate.HasSelectedKey(ctx)
	if err != nil {
		c.log.WithError(err).Warn("credential check failed")
	}
	if ok {
		return nil
	}
	if err := c.gate.OpenSelectKey(ctx); err != nil {
		c.log.WithError(err).Warn("credential selection failed")
	}
	if !c.requireCredential {
		// Optimistic: the selection flow may still be completing.
		return nil
	}
	if ok, err = c.gate.HasSelectedKey(ctx); err != nil || !ok {
		return &SessionError{Kind: ErrorCredential, Message: MsgNoCredential, Err: ErrNoCredential}
	}
	return nil
}

// failStart resolves a failed start into Error then Closed.
func (c *Controller) failStart(ctx context.Context, gen uint64, err error) error {
	if ctx.Err() != nil {
		// Stop (or the caller's context) aborted the handshake.
		c.stopGen(gen)
		return ErrStopped
	}

	var se *SessionError
	if !errors.As(err, &se) {
		se = classifyHandshake(err)
	}
	c.log.WithError(err).WithField("kind", se.Kind.String()).Error("voice session failed to start")

	if !c.enterError(gen, se.Message) {
		return ErrStopped
	}
	c.stopGen(gen)
	if se.Kind == ErrorCredential && !errors.Is(se, ErrNoCredential) {
		c.reselectKey()
	}
	return se
}

func (c *Controller) enterError(gen uint64, msg string) bool {
	c.mu.Lock()
	if c.gen != gen || !c.state.Active() {
		c.mu.Unlock()
		return false
	}
	c.state = StateError
	c.errMsg = msg
	c.mu.Unlock()
	c.observer.OnState(StateError, msg)
	return true
}

func (c *Controller) reselectKey() {
	if c.gate == nil {
		return
	}
	if err := c.gate.OpenSelectKey(context.Background()); err != nil {
		c.log.WithError(err).Warn("credential selection failed")
	}
}

// send forwards one captured block. Blocks captured while the session is not Open are dropped.
func (c *Controller) send(ctx context.Context, gen uint64, b AudioBlock) {
	c.mu.Lock()
	stream := c.stream
	open := c.gen == gen && c.state == StateOpen
	c.mu.Unlock()
	if !open || stream == nil {
		return
	}
	if err := stream.SendAudio(ctx, b.Data, b.MIMEType); err != nil {
		c.log.WithError(err).Debug("audio block dropped")
		return
	}
	c.blocksSent.Add(1)
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.state == StateOpen
}

// receiveLoop handles inbound messages in arrival order, one at a time.
func (c *Controller) receiveLoop(ctx context.Context, gen uint64, stream live.Stream) {
	for {
		msg, err := stream.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || !c.current(gen) {
				return
			}
			if errors.Is(err, live.ErrClosed) || errors.Is(err, io.EOF) {
				c.log.Info("live stream closed")
				c.stopGen(gen)
				return
			}
			c.handleRemoteError(gen, err)
			return
		}
		if !c.current(gen) {
			return
		}
		if msg.Kind == live.KindClosed {
			c.log.WithField("reason", msg.Reason).Info("live session closed by remote")
			c.stopGen(gen)
			return
		}
		c.dispatch(msg)
	}
}

func (c *Controller) dispatch(msg live.Message) {
	switch msg.Kind {
	case live.KindInputTranscript:
		in := c.transcript.AppendInput(msg.Text)
		_, out := c.transcript.Live()
		c.observer.OnTranscript(in, out)
	case live.KindOutputTranscript:
		out := c.transcript.AppendOutput(msg.Text)
		in, _ := c.transcript.Live()
		c.observer.OnTranscript(in, out)
	case live.KindTurnComplete:
		turn := c.transcript.Finalize()
		c.observer.OnTurn(turn)
		c.observer.OnTranscript("", "")
	case live.KindAudio:
		c.play(msg.Audio)
	case live.KindInterrupted:
		c.interrupt()
	}
}

func (c *Controller) play(data []byte) {
	buf, err := DecodePCM16(data, OutputSampleRate, 1)
	if err != nil {
		c.log.WithError(err).Warn("undecodable audio fragment")
		return
	}

	c.mu.Lock()
	sched := c.scheduler
	buf.Seq = c.seq
	c.seq++
	c.mu.Unlock()

	start, err := sched.Enqueue(buf)
	if errors.Is(err, ErrPlaybackClosed) {
		c.log.WithField("seq", buf.Seq).Debug("fragment dropped after stop")
		return
	}
	if err != nil {
		c.log.WithError(err).Warn("schedule audio fragment")
		return
	}
	c.fragments.Add(1)
	c.log.WithFields(logrus.Fields{"seq": buf.Seq, "start": start, "duration": buf.Duration()}).Trace("fragment scheduled")
}

func (c *Controller) interrupt() {
	c.mu.Lock()
	sched := c.scheduler
	c.mu.Unlock()
	sched.Flush()
	c.interruptions.Add(1)
	c.log.Debug("model speech interrupted")
}

func (c *Controller) handleRemoteError(gen uint64, err error) {
	se := classifyRemote(err)
	c.log.WithError(err).WithField("kind", se.Kind.String()).Error("live session error")
	if !c.enterError(gen, se.Message) {
		return
	}
	c.stopGen(gen)
	if se.Kind == ErrorCredential {
		c.reselectKey()
	}
}

// Stop ends the session. It is idempotent and safe to call while connecting.
func (c *Controller) Stop() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.stopGen(gen)
}

// Close is the component teardown; it always stops the session.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

func (c *Controller) stopGen(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	switch c.state {
	case StateIdle, StateClosing, StateClosed:
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	cancel, stream, sched := c.cancel, c.stream, c.scheduler
	c.cancel, c.stream = nil, nil
	c.mu.Unlock()

	c.observer.OnState(StateClosing, "")

	c.safely("cancel session", func() error {
		if cancel != nil {
			cancel()
		}
		return nil
	})
	c.safely("close live stream", func() error {
		if stream == nil {
			return nil
		}
		return stream.Close()
	})
	c.safely("disconnect capture", func() error {
		c.bridge.Disconnect()
		return nil
	})
	c.safely("stop playback", func() error {
		if sched != nil {
			sched.Close()
		}
		return nil
	})

	c.mu.Lock()
	c.state = StateClosed
	msg := c.errMsg
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"blocks_sent":   c.blocksSent.Load(),
		"fragments":     c.fragments.Load(),
		"interruptions": c.interruptions.Load(),
	}).Info("voice session closed")
	c.observer.OnState(StateClosed, msg)
}

// safely runs one teardown step so that a failure cannot skip the others.
func (c *Controller) safely(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("step", step).Errorf("teardown panic: %v", r)
		}
	}()
	if err := fn(); err != nil {
		c.log.WithError(err).WithField("step", step).Debug("teardown step failed")
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns the playback cursor, or 0 before the first session.
func (c *Controller) Cursor() float64 {
	c.mu.Lock()
	sched := c.scheduler
	c.mu.Unlock()
	if sched == nil {
		return 0
	}
	return sched.Cursor()
}

// Snapshot returns the display state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	state, msg := c.state, c.errMsg
	c.mu.Unlock()

	in, out := c.transcript.Live()
	return Snapshot{
		State:           state,
		StateName:       state.String(),
		Error:           msg,
		Input:           in,
		Output:          out,
		History:         c.transcript.History(),
		BlocksSent:      c.blocksSent.Load(),
		FragmentsPlayed: c.fragments.Load(),
		Interruptions:   c.interruptions.Load(),
	}
}
