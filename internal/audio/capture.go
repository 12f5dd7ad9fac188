package audio

import (
	"context"
	"strings"
	"time"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	SampleRate uint32

	// Channels is the number of audio channels; the recognizer wants mono
	Channels uint32

	// BitDepth is the number of bits per sample
	BitDepth uint32

	// BufferFrames is the number of frames per callback
	// Smaller = lower latency, higher CPU usage
	BufferFrames uint32

	// SampleBufferSize is the capacity of the Samples channel in callbacks
	// Larger = more tolerance for a slow recognizer, higher memory usage
	SampleBufferSize int

	// DeviceID is a capture-N identifier from ListDevices
	// Empty string = use default device
	DeviceID string
}

// DefaultConfig returns 16 kHz mono S16 in 30ms callbacks
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:       16000,
		Channels:         1,
		BitDepth:         16,
		BufferFrames:     480, // 30ms at 16kHz
		SampleBufferSize: 50,  // ~1.5 seconds
		DeviceID:         "",
	}
}

// ConfigForModel sizes the sample buffer for the model's decoding speed.
// Larger models fall behind real time, so they get more slack.
func ConfigForModel(modelName string) CaptureConfig {
	cfg := DefaultConfig()
	name := strings.ToLower(modelName)

	switch {
	case strings.Contains(name, "vosk-model-en-us-0.22") && !strings.Contains(name, "lgraph"):
		cfg.SampleBufferSize = 300 // ~9 seconds
	case strings.Contains(name, "lgraph") || strings.Contains(name, "medium"):
		cfg.SampleBufferSize = 150 // ~4.5 seconds
	}
	return cfg
}

// FrameDuration is the audio length delivered per callback
func (c CaptureConfig) FrameDuration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.BufferFrames) * time.Second / time.Duration(c.SampleRate)
}

// FramesFor converts a duration into a whole number of callbacks, at least one
func (c CaptureConfig) FramesFor(d time.Duration) int {
	frame := c.FrameDuration()
	if frame <= 0 || d <= 0 {
		return 1
	}
	n := int((d + frame - 1) / frame)
	if n < 1 {
		n = 1
	}
	return n
}

// BytesPerFrame is the size of one callback's worth of PCM
func (c CaptureConfig) BytesPerFrame() int {
	return int(c.BufferFrames * c.Channels * c.BitDepth / 8)
}

// AudioSample represents a chunk of captured audio data
type AudioSample struct {
	Data      []byte    // Raw audio data
	Timestamp time.Time // When the sample was captured
	Frames    uint32    // Number of audio frames in this sample
}

// Capturer is the interface for audio capture implementations
type Capturer interface {
	// Start begins audio capture
	Start(ctx context.Context) error

	// Stop stops audio capture
	Stop() error

	// Samples returns a channel that receives audio samples
	Samples() <-chan AudioSample

	// Errors returns a channel that receives capture errors
	Errors() <-chan error

	// IsRunning returns true if capture is currently active
	IsRunning() bool
}

// NewCapturer creates a new audio capturer with the given configuration
func NewCapturer(config CaptureConfig) (Capturer, error) {
	return NewMalgoCapturer(config)
}
