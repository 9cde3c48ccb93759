package voice

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func seconds(d float64) *AudioBuffer {
	return &AudioBuffer{SampleRate: OutputSampleRate, Channels: 1, Samples: make([]float32, int(d*OutputSampleRate))}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSchedulerGapless(t *testing.T) {
	out := &fakeOutput{now: 3}
	s := NewScheduler(out, quietLogger())

	durations := []float64{0.5, 0.25, 1}
	want := 3.0
	for i, d := range durations {
		start, err := s.Enqueue(seconds(d))
		if err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
		if !almost(start, want) {
			t.Errorf("fragment %d start = %v, want %v", i, start, want)
		}
		want += d
	}
	if !almost(s.Cursor(), 4.75) {
		t.Errorf("Cursor = %v, want 4.75", s.Cursor())
	}
	if s.ActiveCount() != 3 {
		t.Errorf("ActiveCount = %d, want 3", s.ActiveCount())
	}
}

func TestSchedulerStartsAtClockAfterIdle(t *testing.T) {
	out := &fakeOutput{now: 1}
	s := NewScheduler(out, quietLogger())
	if _, err := s.Enqueue(seconds(0.5)); err != nil {
		t.Fatal(err)
	}
	out.SetNow(10)
	start, err := s.Enqueue(seconds(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if !almost(start, 10) {
		t.Errorf("start = %v, want 10", start)
	}
	if !almost(s.Cursor(), 10.5) {
		t.Errorf("Cursor = %v, want 10.5", s.Cursor())
	}
}

func TestSchedulerFlush(t *testing.T) {
	out := &fakeOutput{now: 2}
	s := NewScheduler(out, quietLogger())
	for i := 0; i < 3; i++ {
		if _, err := s.Enqueue(seconds(1)); err != nil {
			t.Fatal(err)
		}
	}

	s.Flush()

	if s.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", s.ActiveCount())
	}
	if s.Cursor() != 0 {
		t.Errorf("Cursor = %v, want 0", s.Cursor())
	}
	for i, p := range out.Played() {
		if !p.src.Stopped() {
			t.Errorf("source %d not stopped", i)
		}
	}

	out.SetNow(2.4)
	start, err := s.Enqueue(seconds(0.1))
	if err != nil {
		t.Fatal(err)
	}
	if !almost(start, 2.4) {
		t.Errorf("post-flush start = %v, want clock 2.4", start)
	}
}

func TestSchedulerEndedDeregisters(t *testing.T) {
	out := &fakeOutput{}
	s := NewScheduler(out, quietLogger())
	if _, err := s.Enqueue(seconds(0.5)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Enqueue(seconds(0.5)); err != nil {
		t.Fatal(err)
	}

	p := out.Played()
	p[0].onEnded()
	if s.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", s.ActiveCount())
	}
	// A late end after a flush must be harmless.
	s.Flush()
	p[1].onEnded()
	p[0].onEnded()
	if s.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", s.ActiveCount())
	}
}

func TestSchedulerPlayError(t *testing.T) {
	out := &fakeOutput{playErr: errors.New("device gone")}
	s := NewScheduler(out, quietLogger())
	if _, err := s.Enqueue(seconds(0.5)); err == nil {
		t.Fatal("expected error")
	}
	if s.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", s.ActiveCount())
	}
}

func TestSchedulerFlushEmpty(t *testing.T) {
	s := NewScheduler(&fakeOutput{}, nil)
	s.Flush()
	s.Flush()
	if s.ActiveCount() != 0 || s.Cursor() != 0 {
		t.Error("flush on empty scheduler changed state")
	}
}

func TestSchedulerCloseRejectsEnqueue(t *testing.T) {
	out := &fakeOutput{now: 1}
	s := NewScheduler(out, quietLogger())
	if _, err := s.Enqueue(seconds(0.5)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := s.Enqueue(seconds(0.5)); !errors.Is(err, ErrPlaybackClosed) {
		t.Fatalf("Enqueue after Close err = %v, want ErrPlaybackClosed", err)
	}
	if n := len(out.Played()); n != 1 {
		t.Errorf("played %d fragments, want 1", n)
	}
	if !out.Played()[0].src.Stopped() {
		t.Error("source scheduled before Close still playing")
	}
	if !s.Closed() || s.Cursor() != 0 || s.ActiveCount() != 0 {
		t.Errorf("closed=%v cursor=%v active=%d", s.Closed(), s.Cursor(), s.ActiveCount())
	}
	s.Close()
	s.Flush()
}

// hookOutput runs beforePlay inside Play, between scheduling and the returned source.
type hookOutput struct {
	*fakeOutput
	beforePlay func()
}

func (o *hookOutput) Play(buf *AudioBuffer, at float64, onEnded func()) (Source, error) {
	if o.beforePlay != nil {
		o.beforePlay()
	}
	return o.fakeOutput.Play(buf, at, onEnded)
}

func TestSchedulerCloseDuringPlay(t *testing.T) {
	tests := []struct {
		name  string
		flush func(*Scheduler)
	}{
		{"flush", (*Scheduler).Flush},
		{"close", (*Scheduler).Close},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &hookOutput{fakeOutput: &fakeOutput{now: 4}}
			s := NewScheduler(out, quietLogger())
			out.beforePlay = func() { tt.flush(s) }

			if _, err := s.Enqueue(seconds(0.5)); err != nil {
				t.Fatal(err)
			}
			p := out.Played()
			if len(p) != 1 || !p[0].src.Stopped() {
				t.Fatal("source flushed during Play was not stopped")
			}
			if s.ActiveCount() != 0 || s.Cursor() != 0 {
				t.Errorf("active=%d cursor=%v, want 0 and 0", s.ActiveCount(), s.Cursor())
			}
		})
	}
}

func TestSchedulerConcurrentFlushAndEnded(t *testing.T) {
	out := &fakeOutput{now: 1}
	s := NewScheduler(out, quietLogger())

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Enqueue(seconds(0.01)); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	var side sync.WaitGroup
	side.Add(2)
	go func() {
		defer side.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			// Even fragments finish naturally, odd ones only ever end by being stopped.
			for i, p := range out.Played() {
				if i%2 == 0 {
					p.onEnded()
				}
			}
		}
	}()
	go func() {
		defer side.Done()
		for {
			select {
			case <-done:
				return
			default:
				s.Flush()
			}
		}
	}()

	wg.Wait()
	close(done)
	side.Wait()
	s.Close()

	played := out.Played()
	if len(played) != workers*perWorker {
		t.Fatalf("played %d fragments, want %d", len(played), workers*perWorker)
	}
	for i, p := range played {
		if i%2 == 1 && !p.src.Stopped() {
			t.Errorf("fragment %d never stopped", i)
		}
	}
	if s.ActiveCount() != 0 || s.Cursor() != 0 {
		t.Errorf("active=%d cursor=%v, want 0 and 0", s.ActiveCount(), s.Cursor())
	}
}
