package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// disconnectWait bounds how long Disconnect waits for a blocked device read to return.
const disconnectWait = 2 * time.Second

// SampleSource is a live microphone stream yielding float samples in [-1,1] in chunks of any size.
type SampleSource interface {
	ReadSamples(ctx context.Context) ([]float32, error)
	Close() error
}

// Microphone opens live capture streams at InputSampleRate, mono.
type Microphone interface {
	Open(ctx context.Context) (SampleSource, error)
}

var ErrCaptureRunning = errors.New("capture bridge already running")

// CaptureBridge taps a microphone stream, frames it into fixed-size blocks, encodes each block
// as PCM16 and hands it to the transmission path in capture order.
type CaptureBridge struct {
	blockSize int
	log       logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	src    SampleSource
	done   chan struct{}
}

// NewCaptureBridge creates a bridge emitting blocks of blockSize samples.
func NewCaptureBridge(blockSize int, log logrus.FieldLogger) *CaptureBridge {
	if blockSize <= 0 {
		blockSize = BlockSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CaptureBridge{blockSize: blockSize, log: log}
}

// Start begins pumping src into send until Disconnect is called or src fails.
func (b *CaptureBridge) Start(ctx context.Context, src SampleSource, send func(AudioBlock)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		return ErrCaptureRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.src = src
	b.done = make(chan struct{})

	go b.run(runCtx, src, send, b.done)
	return nil
}

func (b *CaptureBridge) run(ctx context.Context, src SampleSource, send func(AudioBlock), done chan struct{}) {
	defer close(done)

	pending := make([]float32, 0, b.blockSize*2)
	for {
		samples, err := src.ReadSamples(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.log.WithError(err).Warn("microphone read failed")
			}
			return
		}
		pending = append(pending, samples...)

		for len(pending) >= b.blockSize {
			if ctx.Err() != nil {
				return
			}
			send(EncodeBlock(pending[:b.blockSize]))
			n := copy(pending, pending[b.blockSize:])
			pending = pending[:n]
		}
	}
}

// Running reports whether the bridge is attached to a stream.
func (b *CaptureBridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done != nil
}

// Disconnect detaches from the stream and closes it. Safe to call repeatedly.
func (b *CaptureBridge) Disconnect() {
	b.mu.Lock()
	cancel, src, done := b.cancel, b.src, b.done
	b.cancel, b.src, b.done = nil, nil, nil
	b.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	if err := src.Close(); err != nil {
		b.log.WithError(err).Debug("close microphone stream")
	}

	select {
	case <-done:
	case <-time.After(disconnectWait):
		b.log.Warn("capture goroutine did not exit in time")
	}
}
