package audio

import (
	"math"
	"time"
)

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	// EnergyThreshold is the minimum RMS level counted as speech
	// Typical values: 0.001 to 0.1 (lower = more sensitive)
	EnergyThreshold float64

	// SilenceFrames is the number of consecutive silent frames that end an utterance
	SilenceFrames int

	// SpeechFrames is the number of consecutive loud frames that start one
	SpeechFrames int
}

// DefaultVADConfig returns a default VAD configuration for 30ms frames
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,
		SilenceFrames:   34, // ~1s
		SpeechFrames:    3,  // 90ms
	}
}

// VADConfigFor builds a VAD configuration for the capture frame size.
// Commands are short, so the silence delay is what bounds response latency.
func VADConfigFor(capture CaptureConfig, threshold float64, silenceDelay time.Duration) VADConfig {
	cfg := DefaultVADConfig()
	cfg.EnergyThreshold = threshold
	cfg.SilenceFrames = capture.FramesFor(silenceDelay)
	cfg.SpeechFrames = capture.FramesFor(90 * time.Millisecond)
	return cfg
}

// VAD (Voice Activity Detector) detects speech vs silence in audio
type VAD struct {
	config            VADConfig
	silenceFrameCount int
	speechFrameCount  int
	isSpeaking        bool
}

// NewVAD creates a new voice activity detector
func NewVAD(config VADConfig) *VAD {
	return &VAD{config: config}
}

// ProcessFrame processes an audio frame and returns whether speech is active
// Returns: (isSpeechActive, speechStarted, speechEnded)
func (v *VAD) ProcessFrame(audioData []byte) (bool, bool, bool) {
	frameHasSpeech := Energy(audioData) > v.config.EnergyThreshold

	speechStarted := false
	speechEnded := false

	if frameHasSpeech {
		v.speechFrameCount++
		v.silenceFrameCount = 0

		if !v.isSpeaking && v.speechFrameCount >= v.config.SpeechFrames {
			v.isSpeaking = true
			speechStarted = true
		}
	} else {
		v.silenceFrameCount++
		v.speechFrameCount = 0

		if v.isSpeaking && v.silenceFrameCount >= v.config.SilenceFrames {
			v.isSpeaking = false
			speechEnded = true
		}
	}

	return v.isSpeaking, speechStarted, speechEnded
}

// IsSpeaking returns whether speech is currently active
func (v *VAD) IsSpeaking() bool {
	return v.isSpeaking
}

// Reset resets the VAD state
func (v *VAD) Reset() {
	v.silenceFrameCount = 0
	v.speechFrameCount = 0
	v.isSpeaking = false
}

// Energy returns the RMS level of 16-bit little-endian PCM, in [0, 1]
func Energy(data []byte) float64 {
	sampleCount := len(data) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount; i++ {
		sample := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(sampleCount))
}
