package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/audio"
	"github.com/emmett/voxbot/internal/output"
	"github.com/emmett/voxbot/internal/stt"
)

// PushToTalk records while toggled on and dispatches the clip when toggled off
type PushToTalk struct {
	capture     audio.CaptureConfig
	transcriber *stt.ClipTranscriber
	dispatcher  *Dispatcher
	formatter   output.Formatter
	log         *zap.Logger
	toggles     chan bool

	// NewCapturer opens a fresh capturer per recording
	NewCapturer func(audio.CaptureConfig) (audio.Capturer, error)
}

// NewPushToTalk creates a push-to-talk session over an initialized engine
func NewPushToTalk(capture audio.CaptureConfig, engine stt.Engine, dispatcher *Dispatcher, formatter output.Formatter, log *zap.Logger) *PushToTalk {
	if log == nil {
		log = zap.NewNop()
	}
	return &PushToTalk{
		capture:     capture,
		transcriber: stt.NewClipTranscriber(engine, capture, nil),
		dispatcher:  dispatcher,
		formatter:   formatter,
		log:         log,
		toggles:     make(chan bool, 10),
		NewCapturer: audio.NewCapturer,
	}
}

// Toggle starts or stops recording; it never blocks, so it is safe from a hotkey callback
func (p *PushToTalk) Toggle(recording bool) {
	select {
	case p.toggles <- recording:
	default:
		p.log.Warn("dropping push-to-talk toggle, queue full")
	}
}

// Run handles toggles until ctx is cancelled
func (p *PushToTalk) Run(ctx context.Context) error {
	var rec *recording
	defer func() {
		if rec != nil {
			rec.stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = p.formatter.Flush()
			return nil

		case on := <-p.toggles:
			switch {
			case on && rec == nil:
				var err error
				if rec, err = p.startRecording(ctx); err != nil {
					p.log.Error("failed to start recording", zap.Error(err))
					rec = nil
					continue
				}
				_ = p.formatter.WriteEvent("ptt", "recording")

			case !on && rec != nil:
				pcm := rec.stop()
				rec = nil
				_ = p.formatter.WriteEvent("ptt", "stopped, transcribing")
				p.transcribe(ctx, pcm)
			}
		}
	}
}

func (p *PushToTalk) startRecording(ctx context.Context) (*recording, error) {
	capturer, err := p.NewCapturer(p.capture)
	if err != nil {
		return nil, fmt.Errorf("failed to create capturer: %w", err)
	}
	if err := capturer.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}

	rec := &recording{
		capturer: capturer,
		quit:     make(chan struct{}),
		done:     make(chan []byte, 1),
	}
	go rec.collect(p.log)
	return rec, nil
}

func (p *PushToTalk) transcribe(ctx context.Context, pcm []byte) {
	if len(pcm) == 0 {
		_ = p.formatter.WriteEvent("ptt", "no audio recorded")
		return
	}

	text, confidence, err := p.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		p.log.Warn("transcription failed", zap.Error(err))
		return
	}

	if text == "" {
		_ = p.formatter.WriteEvent("ptt", "no speech detected")
		return
	}
	if err := p.dispatcher.Utterance(ctx, SourcePushToTalk, text, confidence); err != nil {
		p.log.Warn("failed to dispatch utterance", zap.String("text", text), zap.Error(err))
	}
}

// recording owns one capturer and the audio collected from it
type recording struct {
	capturer audio.Capturer
	quit     chan struct{}
	done     chan []byte
}

func (r *recording) collect(log *zap.Logger) {
	var pcm []byte
	defer func() { r.done <- pcm }()

	for {
		select {
		case <-r.quit:
			return
		case sample, ok := <-r.capturer.Samples():
			if !ok {
				return
			}
			pcm = append(pcm, sample.Data...)
		case err, ok := <-r.capturer.Errors():
			if !ok {
				return
			}
			log.Warn("capture error", zap.Error(err))
		}
	}
}

// stop ends the recording and returns the collected PCM
func (r *recording) stop() []byte {
	close(r.quit)
	pcm := <-r.done
	_ = r.capturer.Stop()
	return pcm
}
