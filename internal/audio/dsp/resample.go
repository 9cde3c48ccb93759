// Package dsp holds the pure-Go sample processing shared by the portaudio devices and the
// browser audio bridge.
package dsp

import (
	"errors"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts a mono float stream from one rate to another. It keeps filter state across
// calls, so one Resampler serves one stream. It is not safe for concurrent use.
type Resampler struct {
	inRate  int
	outRate int
	r       resampling.Resampler
	buf     []float64
}

func NewResampler(inRate, outRate int) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", inRate, outRate)
	}
	rs := &Resampler{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return rs, nil
	}
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	rs.r = r
	return rs, nil
}

// Passthrough reports whether the rates match and samples are returned unchanged.
func (rs *Resampler) Passthrough() bool { return rs.r == nil }

func (rs *Resampler) Process(samples []float32) ([]float32, error) {
	if rs == nil {
		return nil, errors.New("nil resampler")
	}
	if rs.r == nil || len(samples) == 0 {
		return samples, nil
	}
	if cap(rs.buf) < len(samples) {
		rs.buf = make([]float64, len(samples))
	}
	in := rs.buf[:len(samples)]
	for i, s := range samples {
		in[i] = float64(s)
	}
	out, err := rs.r.Process(in)
	if err != nil {
		return nil, err
	}
	res := make([]float32, len(out))
	for i, s := range out {
		res[i] = float32(s)
	}
	return res, nil
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[f*channels+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
