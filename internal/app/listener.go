package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/audio"
	"github.com/emmett/voxbot/internal/output"
	"github.com/emmett/voxbot/internal/stt"
)

// ListenerConfig holds configuration for continuous listening
type ListenerConfig struct {
	Capture audio.CaptureConfig

	// VAD segments utterances by energy; nil leaves endpointing to the recognizer
	VAD *audio.VADConfig

	// Meter, when set, shows the input level of every frame
	Meter *output.ConsoleOutput
}

// Listener streams microphone audio through the recognizer and dispatches
// every final utterance as a command
type Listener struct {
	config     ListenerConfig
	engine     stt.Engine
	capturer   audio.Capturer
	dispatcher *Dispatcher
	formatter  output.Formatter
	log        *zap.Logger

	vad         *audio.VAD
	preroll     *audio.PreRoll
	lastPartial string
}

// NewListener creates a listener over an initialized engine and an unstarted capturer
func NewListener(config ListenerConfig, engine stt.Engine, capturer audio.Capturer, dispatcher *Dispatcher, formatter output.Formatter, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Listener{
		config:     config,
		engine:     engine,
		capturer:   capturer,
		dispatcher: dispatcher,
		formatter:  formatter,
		log:        log,
	}
	if config.VAD != nil {
		l.vad = audio.NewVAD(*config.VAD)
		l.preroll = audio.NewPreRoll(config.VAD.SpeechFrames)
	}
	return l
}

// Run captures until ctx is cancelled or the capturer closes
func (l *Listener) Run(ctx context.Context) error {
	if err := l.capturer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer l.capturer.Stop()

	if l.vad != nil {
		l.log.Info("voice activity detection enabled",
			zap.Float64("threshold", l.config.VAD.EnergyThreshold),
			zap.Int("silence_frames", l.config.VAD.SilenceFrames))
	}

	for {
		select {
		case <-ctx.Done():
			if result, err := l.engine.FinalResult(); err == nil && result.Text != "" {
				l.log.Info("discarding unfinished utterance", zap.String("text", result.Text))
			}
			_ = l.formatter.Flush()
			return nil

		case sample, ok := <-l.capturer.Samples():
			if !ok {
				return nil
			}
			if l.config.Meter != nil {
				_ = l.config.Meter.WriteAudioLevel(audio.Energy(sample.Data))
			}
			l.handleFrame(ctx, sample.Data)

		case err, ok := <-l.capturer.Errors():
			if !ok {
				return nil
			}
			l.log.Warn("capture error", zap.Error(err))
		}
	}
}

func (l *Listener) handleFrame(ctx context.Context, frame []byte) {
	frames := [][]byte{frame}

	if l.vad != nil {
		isSpeaking, started, ended := l.vad.ProcessFrame(frame)
		switch {
		case ended:
			_ = l.formatter.WriteEvent("vad", "silence detected")
			result, err := l.engine.FinalResult()
			if err != nil {
				l.log.Warn("failed to finalize utterance", zap.Error(err))
			} else {
				l.dispatch(ctx, result)
			}
			if err := l.engine.Reset(); err != nil {
				l.log.Warn("failed to reset recognizer", zap.Error(err))
			}
			return
		case !isSpeaking:
			l.preroll.Push(frame)
			return
		case started:
			_ = l.formatter.WriteEvent("vad", "speech detected")
			frames = append(l.preroll.Drain(), frame)
		}
	}

	for _, f := range frames {
		result, err := l.engine.ProcessAudio(ctx, f)
		if err != nil {
			l.log.Warn("recognition error", zap.Error(err))
			continue
		}
		if result == nil || result.Text == "" {
			continue
		}

		if result.Partial {
			if result.Text != l.lastPartial {
				_ = l.formatter.WritePartial(result.Text)
				l.lastPartial = result.Text
			}
			continue
		}
		l.dispatch(ctx, result)
	}
}

func (l *Listener) dispatch(ctx context.Context, result *stt.Result) {
	l.lastPartial = ""
	text := stt.StripUnknown(result.Text)
	if text == "" {
		return
	}
	if err := l.dispatcher.Utterance(ctx, SourceVoice, text, result.Confidence); err != nil {
		l.log.Warn("failed to dispatch utterance", zap.String("text", text), zap.Error(err))
	}
}
