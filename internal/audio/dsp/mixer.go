package dsp

import (
	"errors"
	"math"
	"sync"

	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

// Mixer renders scheduled mono buffers into an output stream. Its clock is the number of frames
// rendered so far divided by the rate.
type Mixer struct {
	rate int

	mu       sync.Mutex
	rendered int64
	sources  map[*mixSource]struct{}
}

type mixSource struct {
	m       *Mixer
	samples []float32
	start   int64
	pos     int
	onEnded func()
}

func NewMixer(rate int) *Mixer {
	return &Mixer{rate: rate, sources: make(map[*mixSource]struct{})}
}

func (m *Mixer) Rate() int { return m.rate }

func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.rendered) / float64(m.rate)
}

// Play schedules buf at clock time at. Buffers at another rate are resampled; a start time in
// the past plays immediately.
func (m *Mixer) Play(buf *voice.AudioBuffer, at float64, onEnded func()) (voice.Source, error) {
	if buf == nil || buf.Frames() == 0 {
		return nil, errors.New("empty audio buffer")
	}
	samples := Downmix(buf.Samples, buf.Channels)
	if buf.SampleRate != m.rate {
		rs, err := NewResampler(buf.SampleRate, m.rate)
		if err != nil {
			return nil, err
		}
		if samples, err = rs.Process(samples); err != nil {
			return nil, err
		}
	}

	src := &mixSource{m: m, samples: samples, onEnded: onEnded}
	m.mu.Lock()
	src.start = int64(math.Round(at * float64(m.rate)))
	if src.start < m.rendered {
		src.start = m.rendered
	}
	m.sources[src] = struct{}{}
	m.mu.Unlock()
	return src, nil
}

// Render fills out with the next frames and advances the clock. Sources that finish inside the
// block get their onEnded callback after the block is rendered.
func (m *Mixer) Render(out []float32) {
	var finished []func()

	m.mu.Lock()
	base := m.rendered
	for i := range out {
		out[i] = 0
	}
	for src := range m.sources {
		off := src.start - base
		if off >= int64(len(out)) {
			continue
		}
		i := 0
		if off > 0 {
			i = int(off)
		}
		for ; i < len(out) && src.pos < len(src.samples); i++ {
			out[i] += src.samples[src.pos]
			src.pos++
		}
		if src.pos >= len(src.samples) {
			delete(m.sources, src)
			if src.onEnded != nil {
				finished = append(finished, src.onEnded)
			}
		}
	}
	for i, v := range out {
		if v > 1 {
			out[i] = 1
		} else if v < -1 {
			out[i] = -1
		}
	}
	m.rendered += int64(len(out))
	m.mu.Unlock()

	for _, fn := range finished {
		fn()
	}
}

// Active returns the number of sources still scheduled or playing.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

// Stop removes the source without firing onEnded.
func (s *mixSource) Stop() error {
	s.m.mu.Lock()
	delete(s.m.sources, s)
	s.m.mu.Unlock()
	return nil
}
