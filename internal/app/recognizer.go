package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/command"
	"github.com/emmett/voxbot/internal/stt"
)

// RecognizerOptions selects and configures the speech model
type RecognizerOptions struct {
	Model        string
	Interactive  bool
	AutoDownload bool

	// Grammar limits the recognizer to the vocabulary's keywords
	Grammar bool
}

// OpenRecognizer resolves, downloads if needed, and loads a Vosk model.
// It returns the initialized engine and the name of the model in use.
func (m *ModelManager) OpenRecognizer(ctx context.Context, opts RecognizerOptions, vocab *command.Vocabulary, log *zap.Logger) (*stt.VoskEngine, string, error) {
	name, err := m.SelectModel(ctx, opts.Model, opts.Interactive)
	if err != nil {
		return nil, "", fmt.Errorf("failed to select model: %w", err)
	}

	name, err = m.EnsureModel(ctx, name, opts.AutoDownload)
	if err != nil {
		return nil, "", err
	}

	path, err := m.store.Path(name)
	if err != nil {
		return nil, "", err
	}

	sttConfig := stt.DefaultConfig(path)
	if opts.Grammar {
		if m.store.SupportsGrammar(name) {
			sttConfig.Grammar = vocab.Keywords()
		} else {
			log.Warn("model does not support a runtime grammar, using free dictation", zap.String("model", name))
		}
	}

	log.Info("loading speech model",
		zap.String("model", name),
		zap.String("path", path),
		zap.Int("grammar_words", len(sttConfig.Grammar)))

	engine := stt.NewVoskEngine()
	if err := engine.Initialize(sttConfig); err != nil {
		return nil, "", fmt.Errorf("failed to initialize recognizer: %w", err)
	}
	return engine, name, nil
}
