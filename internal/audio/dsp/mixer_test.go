package dsp

import (
	"testing"

	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

func mono(rate int, samples ...float32) *voice.AudioBuffer {
	return &voice.AudioBuffer{SampleRate: rate, Channels: 1, Samples: samples}
}

func TestMixerClockAdvancesWithRender(t *testing.T) {
	m := NewMixer(4)
	if m.Now() != 0 {
		t.Fatalf("Now = %v", m.Now())
	}
	m.Render(make([]float32, 6))
	if got := m.Now(); got != 1.5 {
		t.Errorf("Now = %v, want 1.5", got)
	}
}

func TestMixerSchedulesAtStartTime(t *testing.T) {
	m := NewMixer(4)
	ended := 0
	if _, err := m.Play(mono(4, 0.1, 0.2, 0.3), 0.5, func() { ended++ }); err != nil {
		t.Fatal(err)
	}

	out := make([]float32, 4)
	m.Render(out)
	want := []float32{0, 0, 0.1, 0.2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("block 1 = %v, want %v", out, want)
		}
	}
	if ended != 0 || m.Active() != 1 {
		t.Fatalf("ended=%d active=%d after partial render", ended, m.Active())
	}

	m.Render(out)
	if out[0] != 0.3 || out[1] != 0 {
		t.Errorf("block 2 = %v", out)
	}
	if ended != 1 || m.Active() != 0 {
		t.Errorf("ended=%d active=%d", ended, m.Active())
	}
}

func TestMixerPastStartPlaysNow(t *testing.T) {
	m := NewMixer(4)
	m.Render(make([]float32, 8))
	if _, err := m.Play(mono(4, 0.5), 0, nil); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 2)
	m.Render(out)
	if out[0] != 0.5 {
		t.Errorf("out = %v", out)
	}
}

func TestMixerStopSuppressesEnded(t *testing.T) {
	m := NewMixer(4)
	ended := false
	src, err := m.Play(mono(4, 0.1, 0.1, 0.1, 0.1), 0, func() { ended = true })
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Stop(); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 4)
	m.Render(out)
	if ended || out[0] != 0 {
		t.Errorf("stopped source played: ended=%v out=%v", ended, out)
	}
}

func TestMixerSumsAndClamps(t *testing.T) {
	m := NewMixer(4)
	_, _ = m.Play(mono(4, 0.75, -0.75), 0, nil)
	_, _ = m.Play(mono(4, 0.75, -0.75), 0, nil)
	out := make([]float32, 2)
	m.Render(out)
	if out[0] != 1 || out[1] != -1 {
		t.Errorf("out = %v, want [1 -1]", out)
	}
}

func TestMixerRejectsEmpty(t *testing.T) {
	m := NewMixer(4)
	if _, err := m.Play(mono(4), 0, nil); err == nil {
		t.Error("expected error for empty buffer")
	}
	if _, err := m.Play(nil, 0, nil); err == nil {
		t.Error("expected error for nil buffer")
	}
}

func TestMixerWorksWithScheduler(t *testing.T) {
	m := NewMixer(voice.OutputSampleRate)
	s := voice.NewScheduler(m, nil)
	buf := mono(voice.OutputSampleRate, make([]float32, voice.OutputSampleRate/2)...)

	first, err := s.Enqueue(buf)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Enqueue(buf)
	if err != nil {
		t.Fatal(err)
	}
	if first != 0 || second != 0.5 {
		t.Errorf("starts = %v, %v; want 0, 0.5", first, second)
	}
	m.Render(make([]float32, voice.OutputSampleRate))
	if s.ActiveCount() != 0 {
		t.Errorf("active = %d after full render", s.ActiveCount())
	}
}
