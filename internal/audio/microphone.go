package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/audio/dsp"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

// MicFrames is the number of device frames per blocking read.
const MicFrames = 4096

// Microphone opens the default input device. Audio is delivered at voice.InputSampleRate mono;
// devices that cannot run at that rate are captured at their default rate and resampled.
type Microphone struct {
	log logrus.FieldLogger
}

func NewMicrophone(log logrus.FieldLogger) *Microphone {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Microphone{log: log}
}

func (m *Microphone) Open(ctx context.Context) (voice.SampleSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("default input device: %w", err)
	}

	buf := make([]float32, MicFrames)
	rate := voice.InputSampleRate
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(rate), len(buf), buf)
	if err != nil {
		// Fall back to the device's native rate.
		rate = int(dev.DefaultSampleRate)
		stream, err = portaudio.OpenDefaultStream(1, 0, dev.DefaultSampleRate, len(buf), buf)
		if err != nil {
			return nil, fmt.Errorf("open input stream: %w", err)
		}
	}
	rs, err := dsp.NewResampler(rate, voice.InputSampleRate)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	m.log.WithFields(logrus.Fields{"device": dev.Name, "rate": rate}).Info("microphone open")
	return &micStream{stream: stream, buf: buf, rs: rs, log: m.log}, nil
}

type micStream struct {
	stream *portaudio.Stream
	buf    []float32
	rs     *dsp.Resampler
	log    logrus.FieldLogger

	mu     sync.Mutex
	closed bool
}

var errMicClosed = errors.New("microphone closed")

func (s *micStream) ReadSamples(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errMicClosed
	}

	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			s.log.Debug("input overflowed")
		} else {
			return nil, err
		}
	}
	return s.rs.Process(append([]float32(nil), s.buf...))
}

func (s *micStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.stream.Stop()
	return s.stream.Close()
}
