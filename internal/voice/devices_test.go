package voice

import (
	"errors"
	"testing"
)

type closingMic struct {
	fakeMic
	closed int
}

func (m *closingMic) Close() error {
	m.closed++
	return nil
}

func TestDevicesCreatedOnceAndReused(t *testing.T) {
	mics := 0
	mic := &closingMic{}
	d := NewDevices(func() (Microphone, error) {
		mics++
		return mic, nil
	}, nil)

	for i := 0; i < 3; i++ {
		if _, err := d.Microphone(); err != nil {
			t.Fatal(err)
		}
	}
	if mics != 1 {
		t.Errorf("microphone created %d times, want 1", mics)
	}
	if _, err := d.Output(); err == nil {
		t.Error("missing output constructor accepted")
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if mic.closed != 1 {
		t.Errorf("microphone closed %d times", mic.closed)
	}
	if _, err := d.Microphone(); err != nil {
		t.Fatal(err)
	}
	if mics != 2 {
		t.Errorf("microphone not recreated after close")
	}
}

func TestDevicesConstructorError(t *testing.T) {
	calls := 0
	d := NewDevices(nil, func() (Output, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no device")
		}
		return &fakeOutput{}, nil
	})
	if _, err := d.Output(); err == nil {
		t.Fatal("expected error")
	}
	if _, err := d.Output(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
