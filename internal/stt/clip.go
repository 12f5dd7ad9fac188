package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/emmett/voxbot/internal/audio"
)

// ClipTranscriber transcribes complete PCM clips (16 kHz mono S16) with a
// shared engine. With a VAD configured, leading silence is skipped and the
// clip ends at the first utterance. Transcripts never contain [unk].
type ClipTranscriber struct {
	mu      sync.Mutex
	engine  Engine
	capture audio.CaptureConfig
	vad     *audio.VADConfig
}

// NewClipTranscriber wraps an initialized engine; vad may be nil
func NewClipTranscriber(engine Engine, capture audio.CaptureConfig, vad *audio.VADConfig) *ClipTranscriber {
	return &ClipTranscriber{engine: engine, capture: capture, vad: vad}
}

// Transcribe returns the first utterance in the clip
func (c *ClipTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.Reset(); err != nil {
		return "", 0, fmt.Errorf("failed to reset engine: %w", err)
	}

	var vad *audio.VAD
	var preroll *audio.PreRoll
	if c.vad != nil {
		vad = audio.NewVAD(*c.vad)
		preroll = audio.NewPreRoll(c.vad.SpeechFrames)
	}

	frameSize := c.capture.BytesPerFrame()
	if frameSize <= 0 {
		return "", 0, fmt.Errorf("invalid capture frame size")
	}

	for offset := 0; offset < len(pcm); offset += frameSize {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		chunk := pcm[offset:min(offset+frameSize, len(pcm))]
		if len(chunk) < frameSize {
			padded := make([]byte, frameSize)
			copy(padded, chunk)
			chunk = padded
		}

		frames := [][]byte{chunk}
		if vad != nil {
			isSpeaking, started, ended := vad.ProcessFrame(chunk)
			if ended {
				break
			}
			if !isSpeaking {
				preroll.Push(chunk)
				continue
			}
			if started {
				frames = append(preroll.Drain(), chunk)
			}
		}

		for _, frame := range frames {
			result, err := c.engine.ProcessAudio(ctx, frame)
			if err != nil {
				return "", 0, fmt.Errorf("transcription failed: %w", err)
			}
			if result.Partial {
				continue
			}
			// the recognizer found an utterance boundary on its own
			if text := StripUnknown(result.Text); text != "" {
				return text, result.Confidence, nil
			}
		}
	}

	result, err := c.engine.FinalResult()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get final result: %w", err)
	}
	return StripUnknown(result.Text), result.Confidence, nil
}
