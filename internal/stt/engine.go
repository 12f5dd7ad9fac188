// Package stt turns captured speech into command text.
package stt

import "context"

// Result is one recognizer output
type Result struct {
	Text string

	// Partial results are still being decoded and may change
	Partial bool

	// Confidence is the mean word confidence of a final result, 0 for partials
	Confidence float64
}

// Config selects the model and what the recognizer may hear
type Config struct {
	ModelPath  string
	SampleRate int

	// Grammar restricts recognition to these words; empty means free dictation.
	// Words outside the grammar come back as [unk].
	Grammar []string
}

// DefaultConfig returns a 16 kHz free-dictation configuration
func DefaultConfig(modelPath string) Config {
	return Config{ModelPath: modelPath, SampleRate: 16000}
}

// Engine turns 16-bit mono PCM into text. Implementations serialize calls.
type Engine interface {
	Initialize(config Config) error

	// ProcessAudio decodes one chunk; a non-partial result closes an utterance
	ProcessAudio(ctx context.Context, pcm []byte) (*Result, error)

	// FinalResult closes the current utterance and returns it
	FinalResult() (*Result, error)

	// Reset drops audio buffered since the last result
	Reset() error

	Close() error
}
