package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// TextInput dispatches typed lines as utterances, for driving without a microphone
type TextInput struct {
	reader     io.Reader
	dispatcher *Dispatcher
	log        *zap.Logger
}

// NewTextInput reads one utterance per line from r
func NewTextInput(r io.Reader, dispatcher *Dispatcher, log *zap.Logger) *TextInput {
	if log == nil {
		log = zap.NewNop()
	}
	return &TextInput{reader: r, dispatcher: dispatcher, log: log}
}

// Run returns at end of input or when ctx is cancelled
func (t *TextInput) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.reader)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				return nil
			}
			if err := t.dispatcher.Utterance(ctx, SourceText, line, 1); err != nil {
				t.log.Warn("failed to dispatch utterance", zap.String("text", line), zap.Error(err))
			}
		}
	}
}
