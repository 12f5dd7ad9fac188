package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// UnknownWord is what Vosk emits for speech outside a grammar
const UnknownWord = "[unk]"

// VoskEngine implements the Engine interface using Vosk
type VoskEngine struct {
	model       *vosk.VoskModel
	recognizer  *vosk.VoskRecognizer
	config      Config
	mu          sync.Mutex
	initialized bool
}

// voskResult is the JSON document returned by the recognizer
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// NewVoskEngine creates a new Vosk STT engine
func NewVoskEngine() *VoskEngine {
	return &VoskEngine{}
}

// Initialize loads the model and builds a recognizer, restricted to the
// configured grammar when one is given
func (v *VoskEngine) Initialize(config Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}

	var recognizer *vosk.VoskRecognizer
	if len(config.Grammar) > 0 {
		grammar, gerr := GrammarJSON(config.Grammar)
		if gerr != nil {
			model.Free()
			return gerr
		}
		recognizer, err = vosk.NewRecognizerGrm(model, float64(config.SampleRate), grammar)
	} else {
		recognizer, err = vosk.NewRecognizer(model, float64(config.SampleRate))
	}
	if err != nil {
		model.Free()
		return fmt.Errorf("failed to create recognizer: %w", err)
	}

	// word results carry the confidence scores
	recognizer.SetWords(1)

	v.model = model
	v.recognizer = recognizer
	v.config = config
	v.initialized = true

	return nil
}

// ProcessAudio feeds 16-bit PCM to the recognizer. A non-partial result means
// Vosk detected the end of an utterance on its own.
func (v *VoskEngine) ProcessAudio(ctx context.Context, audioData []byte) (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if v.recognizer.AcceptWaveform(audioData) > 0 {
		res, err := parseResult(v.recognizer.Result())
		if err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}
		return res, nil
	}

	var partial voskResult
	if err := json.Unmarshal([]byte(v.recognizer.PartialResult()), &partial); err != nil {
		return nil, fmt.Errorf("failed to parse partial result: %w", err)
	}
	return &Result{Text: partial.Partial, Partial: true}, nil
}

// FinalResult flushes the recognizer and returns the pending utterance
func (v *VoskEngine) FinalResult() (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	res, err := parseResult(v.recognizer.FinalResult())
	if err != nil {
		return nil, fmt.Errorf("failed to parse final result: %w", err)
	}
	return res, nil
}

// Reset discards any buffered audio
func (v *VoskEngine) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return fmt.Errorf("engine not initialized")
	}
	v.recognizer.Reset()
	return nil
}

// Close releases resources
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}

	v.initialized = false
	return nil
}

func parseResult(raw string) (*Result, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, err
	}
	return &Result{
		Text:       res.Text,
		Confidence: averageConfidence(res),
	}, nil
}

func averageConfidence(result voskResult) float64 {
	if len(result.Result) == 0 {
		return 0.0
	}

	var sum float64
	for _, word := range result.Result {
		sum += word.Conf
	}
	return sum / float64(len(result.Result))
}
