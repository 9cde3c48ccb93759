package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/audio/dsp"
)

// Speaker is the default output device driven by a portaudio callback that pulls from a Mixer.
type Speaker struct {
	*dsp.Mixer

	stream    *portaudio.Stream
	closeOnce sync.Once
	log       logrus.FieldLogger
}

// OpenSpeaker opens and starts a mono callback stream at rate. portaudio must be initialized.
func OpenSpeaker(rate, framesPerBuffer int, log logrus.FieldLogger) (*Speaker, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Speaker{Mixer: dsp.NewMixer(rate), log: log}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(rate), framesPerBuffer, func(out []float32) {
		s.Mixer.Render(out)
	})
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	s.stream = stream
	log.WithFields(logrus.Fields{"rate": rate, "frames": framesPerBuffer}).Debug("speaker started")
	return s, nil
}

func (s *Speaker) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if e := s.stream.Stop(); e != nil {
			s.log.WithError(e).Debug("stop output stream")
		}
		err = s.stream.Close()
	})
	return err
}
