package voice

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// InputSampleRate is the rate of microphone audio sent to the live model.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of synthesized audio returned by the live model.
	OutputSampleRate = 24000
	// BlockSize is the number of samples per outbound block.
	BlockSize = 4096
	// InputMIMEType tags every outbound block.
	InputMIMEType = "audio/pcm;rate=16000"

	pcmBytesPerSample = 2
	pcmScale          = 32768
)

var ErrOddPCMLength = errors.New("pcm16 payload has odd byte length")

// AudioBlock is one captured block of 16-bit linear PCM, ready for transmission.
type AudioBlock struct {
	Data     []byte
	MIMEType string
	Samples  int
}

// Base64 returns the block payload in the browser wire encoding.
func (b AudioBlock) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// AudioBuffer is a decoded fragment of synthesized speech.
type AudioBuffer struct {
	SampleRate int
	Channels   int
	Samples    []float32 // interleaved when Channels > 1
	Seq        uint64
}

// Frames returns the number of sample frames in the buffer.
func (b *AudioBuffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length in seconds.
func (b *AudioBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// PCM16 re-encodes the buffer as little-endian 16-bit PCM.
func (b *AudioBuffer) PCM16() []byte {
	return pcm16Bytes(EncodePCM16(b.Samples))
}

// EncodePCM16 converts float samples in [-1,1] to signed 16-bit PCM. Out-of-range input is
// clamped rather than wrapped.
func EncodePCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * pcmScale
		switch {
		case math.IsNaN(v):
			v = 0
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// EncodeBlock encodes microphone samples into an outbound block.
func EncodeBlock(samples []float32) AudioBlock {
	return AudioBlock{
		Data:     pcm16Bytes(EncodePCM16(samples)),
		MIMEType: InputMIMEType,
		Samples:  len(samples),
	}
}

func pcm16Bytes(pcm []int16) []byte {
	data := make([]byte, len(pcm)*pcmBytesPerSample)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(data[i*pcmBytesPerSample:], uint16(v))
	}
	return data
}

// DecodePCM16 reconstructs a playable buffer from raw little-endian 16-bit PCM at exactly the
// given rate and channel count. No resampling is done.
func DecodePCM16(data []byte, sampleRate, channels int) (*AudioBuffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid pcm format: rate=%d channels=%d", sampleRate, channels)
	}
	if len(data)%pcmBytesPerSample != 0 {
		return nil, ErrOddPCMLength
	}
	n := len(data) / pcmBytesPerSample
	n -= n % channels

	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*pcmBytesPerSample:]))
		samples[i] = float32(v) / pcmScale
	}
	return &AudioBuffer{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// DecodeBase64PCM16 decodes a base64 PCM16 payload.
func DecodeBase64PCM16(b64 string, sampleRate, channels int) (*AudioBuffer, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return DecodePCM16(raw, sampleRate, channels)
}

// DecodeFloat32LE parses little-endian float32 samples, the browser capture wire format.
func DecodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 payload length %d is not a multiple of 4", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
