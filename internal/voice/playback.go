package voice

import (
	"errors"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// Output is an audio output device with its own monotonically increasing clock.
type Output interface {
	// Now returns the output clock in seconds.
	Now() float64
	// Play schedules buf to start at the given clock time. onEnded fires once playback
	// completes naturally; it is not called for stopped sources.
	Play(buf *AudioBuffer, at float64, onEnded func()) (Source, error)
}

// Source is one scheduled buffer on an Output.
type Source interface {
	Stop() error
}

// ErrPlaybackClosed is returned by Enqueue once the scheduler is closed.
var ErrPlaybackClosed = errors.New("playback scheduler closed")

type scheduledSource struct {
	src     Source
	flushed bool
}

// Scheduler plays decoded fragments back to back in arrival order. There is no queue: each
// fragment starts at max(clock, cursor) and pushes the cursor forward by its duration.
type Scheduler struct {
	out Output
	log logrus.FieldLogger

	mu     sync.Mutex
	cursor float64
	active map[*scheduledSource]struct{}
	closed bool
}

// NewScheduler creates a scheduler on out.
func NewScheduler(out Output, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		out:    out,
		log:    log,
		active: make(map[*scheduledSource]struct{}),
	}
}

// Enqueue schedules buf after everything already scheduled and returns its start time.
// It fails with ErrPlaybackClosed after Close.
func (s *Scheduler) Enqueue(buf *AudioBuffer) (float64, error) {
	entry := &scheduledSource{}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrPlaybackClosed
	}
	start := math.Max(s.out.Now(), s.cursor)
	s.cursor = start + buf.Duration()
	s.active[entry] = struct{}{}
	s.mu.Unlock()

	src, err := s.out.Play(buf, start, func() { s.ended(entry) })
	if err != nil {
		s.mu.Lock()
		delete(s.active, entry)
		s.mu.Unlock()
		return start, err
	}

	s.mu.Lock()
	entry.src = src
	flushed := entry.flushed
	s.mu.Unlock()

	// A flush raced with Play; the source is already forgotten, so silence it here.
	if flushed {
		stopQuietly(src)
	}
	return start, nil
}

func (s *Scheduler) ended(entry *scheduledSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[entry]; ok {
		delete(s.active, entry)
	}
}

// Flush stops and forgets every active source and resets the cursor so the next fragment
// starts immediately.
func (s *Scheduler) Flush() {
	s.flush(false)
}

// Close flushes and rejects every later Enqueue. A fragment whose Play is in flight is
// stopped by Enqueue itself.
func (s *Scheduler) Close() {
	s.flush(true)
}

func (s *Scheduler) flush(closing bool) {
	s.mu.Lock()
	if closing {
		s.closed = true
	}
	entries := s.active
	s.active = make(map[*scheduledSource]struct{})
	s.cursor = 0
	srcs := make([]Source, 0, len(entries))
	for e := range entries {
		e.flushed = true
		if e.src != nil {
			srcs = append(srcs, e.src)
		}
	}
	s.mu.Unlock()

	for _, src := range srcs {
		stopQuietly(src)
	}
	if len(srcs) > 0 {
		s.log.WithField("sources", len(srcs)).Debug("playback flushed")
	}
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Cursor returns the scheduled start time of the next fragment.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// ActiveCount returns the number of sources that are scheduled or playing.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// stopQuietly stops a source, ignoring errors and panics from sources that already stopped.
func stopQuietly(src Source) {
	defer func() { _ = recover() }()
	_ = src.Stop()
}
