package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zenbanez/docuvoice-ai/internal/audio/dsp"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

// remoteMic is the browser microphone: binary websocket frames of float32 LE samples are pushed
// in and read out by the capture bridge at voice.InputSampleRate.
type remoteMic struct {
	mu  sync.Mutex
	rs  *dsp.Resampler
	cur *remoteStream
}

func newRemoteMic() *remoteMic {
	rs, _ := dsp.NewResampler(voice.InputSampleRate, voice.InputSampleRate)
	return &remoteMic{rs: rs}
}

// setRate declares the browser's capture rate.
func (m *remoteMic) setRate(rate int) error {
	rs, err := dsp.NewResampler(rate, voice.InputSampleRate)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rs = rs
	m.mu.Unlock()
	return nil
}

func (m *remoteMic) Open(ctx context.Context) (voice.SampleSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &remoteStream{mic: m, ch: make(chan []float32, 64), done: make(chan struct{})}
	m.mu.Lock()
	if m.cur != nil {
		m.cur.stop()
	}
	m.cur = s
	m.mu.Unlock()
	return s, nil
}

// push delivers samples to the open stream. Frames arriving with no open stream, or faster than
// the session reads them, are dropped.
func (m *remoteMic) push(samples []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil
	}
	out, err := m.rs.Process(samples)
	if err != nil {
		return err
	}
	if len(out) > 0 {
		m.cur.deliver(out)
	}
	return nil
}

func (m *remoteMic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.cur.stop()
		m.cur = nil
	}
	return nil
}

type remoteStream struct {
	mic  *remoteMic
	ch   chan []float32
	done chan struct{}
	once sync.Once
}

func (s *remoteStream) deliver(samples []float32) {
	select {
	case <-s.done:
	case s.ch <- samples:
	default:
	}
}

func (s *remoteStream) ReadSamples(ctx context.Context) ([]float32, error) {
	select {
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	case b := <-s.ch:
		return b, nil
	}
}

func (s *remoteStream) stop() { s.once.Do(func() { close(s.done) }) }

func (s *remoteStream) Close() error {
	s.stop()
	s.mic.mu.Lock()
	if s.mic.cur == s {
		s.mic.cur = nil
	}
	s.mic.mu.Unlock()
	return nil
}

type audioMsg struct {
	Type       string  `json:"type"`
	ID         uint64  `json:"id"`
	At         float64 `json:"at,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Data       string  `json:"data,omitempty"`
}

var errSpeakerClosed = errors.New("remote speaker closed")

// remoteSpeaker is the browser output. Its clock is seconds since the connection opened; the
// browser schedules each fragment at the same offset on its own audio clock.
type remoteSpeaker struct {
	send   func(v any) error
	opened time.Time
	nextID atomic.Uint64

	mu      sync.Mutex
	closed  bool
	playing map[uint64]*remoteSource
}

type remoteSource struct {
	spk   *remoteSpeaker
	id    uint64
	timer *time.Timer
}

func newRemoteSpeaker(send func(v any) error) *remoteSpeaker {
	return &remoteSpeaker{send: send, opened: time.Now(), playing: make(map[uint64]*remoteSource)}
}

func (s *remoteSpeaker) Now() float64 { return time.Since(s.opened).Seconds() }

func (s *remoteSpeaker) Play(buf *voice.AudioBuffer, at float64, onEnded func()) (voice.Source, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errSpeakerClosed
	}

	id := s.nextID.Add(1)
	err := s.send(audioMsg{
		Type:       "audio",
		ID:         id,
		At:         at,
		SampleRate: buf.SampleRate,
		Data:       base64.StdEncoding.EncodeToString(buf.PCM16()),
	})
	if err != nil {
		return nil, err
	}

	delay := time.Duration((at + buf.Duration() - s.Now()) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}
	src := &remoteSource{spk: s, id: id}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errSpeakerClosed
	}
	s.playing[id] = src
	src.timer = time.AfterFunc(delay, func() {
		if s.forget(id) != nil && onEnded != nil {
			onEnded()
		}
	})
	return src, nil
}

func (s *remoteSpeaker) forget(id uint64) *remoteSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.playing[id]
	if !ok {
		return nil
	}
	delete(s.playing, id)
	return src
}

func (s *remoteSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, src := range s.playing {
		src.timer.Stop()
		delete(s.playing, id)
	}
	return nil
}

func (r *remoteSource) Stop() error {
	if r.spk.forget(r.id) == nil {
		return nil
	}
	r.timer.Stop()
	return r.spk.send(audioMsg{Type: "audio_stop", ID: r.id})
}
