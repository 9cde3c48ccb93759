package voice

import (
	"errors"
	"io"
	"sync"
)

// Devices owns the microphone and the speaker. Each is created on first use and reused by
// every later session until Close.
type Devices struct {
	newMic func() (Microphone, error)
	newOut func() (Output, error)

	mu  sync.Mutex
	mic Microphone
	out Output
}

// NewDevices creates a lazy device manager from the two constructors.
func NewDevices(newMic func() (Microphone, error), newOut func() (Output, error)) *Devices {
	return &Devices{newMic: newMic, newOut: newOut}
}

// Microphone returns the shared microphone, creating it on first call.
func (d *Devices) Microphone() (Microphone, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mic != nil {
		return d.mic, nil
	}
	if d.newMic == nil {
		return nil, errors.New("no microphone configured")
	}
	mic, err := d.newMic()
	if err != nil {
		return nil, err
	}
	d.mic = mic
	return mic, nil
}

// Output returns the shared output device, creating it on first call.
func (d *Devices) Output() (Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out != nil {
		return d.out, nil
	}
	if d.newOut == nil {
		return nil, errors.New("no output device configured")
	}
	out, err := d.newOut()
	if err != nil {
		return nil, err
	}
	d.out = out
	return out, nil
}

// Close releases whichever devices were created.
func (d *Devices) Close() error {
	d.mu.Lock()
	mic, out := d.mic, d.out
	d.mic, d.out = nil, nil
	d.mu.Unlock()

	var errs []error
	if c, ok := mic.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := out.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
