package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/app"
	"github.com/emmett/voxbot/internal/audio"
	"github.com/emmett/voxbot/internal/config"
	"github.com/emmett/voxbot/internal/input"
	"github.com/emmett/voxbot/internal/logging"
	"github.com/emmett/voxbot/internal/models"
	"github.com/emmett/voxbot/internal/output"
	"github.com/emmett/voxbot/internal/pilot"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile      = flag.String("config", "", "Path to configuration file (default: ~/.voxbotrc or /etc/voxbot/config.yaml)")
	mode            = flag.String("mode", "listen", "Input mode: listen, ptt, text")
	listModels      = flag.Bool("list-models", false, "List all available models for download")
	listDownloaded  = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel   = flag.String("download-model", "", "Download a specific model by name")
	modelName       = flag.String("model", "", "Use a specific model (default: "+models.DefaultModelName+")")
	selectModel     = flag.Bool("select-model", false, "Interactively select a model to use")
	setDefault      = flag.String("set-default", "", "Set a model as the default")
	autoDownload    = flag.Bool("auto-download", false, "Automatically download the model if not found (no prompt)")
	outputFormat    = flag.String("format", "console", "Output format: console, json, text")
	enableVAD       = flag.Bool("vad", true, "Enable Voice Activity Detection to split utterances on pauses")
	vadThreshold    = flag.Float64("vad-threshold", 0.01, "VAD energy threshold (0.001-0.1, lower=more sensitive)")
	vadSilenceDelay = flag.Float64("vad-silence-delay", 1.0, "Seconds of silence that end a command")
	audioDevice     = flag.String("device", "", "Audio input device name or ID (use --list-devices to see available devices)")
	listDevices     = flag.Bool("list-devices", false, "List all available audio input devices")
	showMeter       = flag.Bool("meter", false, "Show the microphone input level while listening")
	robotURL        = flag.String("robot", "", "voxbot bridge websocket URL (not the Thymio Device Manager port)")
	dryRun          = flag.Bool("dry-run", false, "Log robot commands instead of sending them")
	grammar         = flag.Bool("grammar", false, "Restrict recognition to the command keywords")
	logLevel        = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion     = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("voxbot v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.ReadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load config: %v\n", err)
		os.Exit(1)
	}

	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listDevices {
		if err := app.NewDeviceManager(os.Stdout).ListDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	store, err := models.NewStore(cfg.Model.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mgr := app.NewModelManager(store, os.Stdin, os.Stdout)

	var action func() error
	switch {
	case *listModels:
		action = mgr.ListModels
	case *listDownloaded:
		action = mgr.ListDownloaded
	case *downloadModel != "":
		action = func() error { return mgr.Download(ctx, *downloadModel) }
	case *setDefault != "":
		action = func() error { return mgr.SetDefault(*setDefault) }
	default:
		action = func() error { return run(ctx, cfg, mgr, log) }
	}

	if err := action(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlagOverrides lets explicitly set flags win over the loaded configuration
func applyFlagOverrides(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["model"] {
		cfg.Model.Default = *modelName
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["vad"] {
		cfg.VAD.Enabled = *enableVAD
	}
	if flagsSet["vad-threshold"] {
		cfg.VAD.Threshold = *vadThreshold
	}
	if flagsSet["vad-silence-delay"] {
		cfg.VAD.SilenceDelay = *vadSilenceDelay
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["robot"] {
		cfg.Robot.URL = *robotURL
	}
	if flagsSet["dry-run"] {
		cfg.Robot.DryRun = *dryRun
	}
	if flagsSet["grammar"] {
		cfg.STT.Grammar = *grammar
	}
	if flagsSet["log-level"] {
		cfg.Log.Level = *logLevel
	}
}

func run(ctx context.Context, cfg *config.Config, mgr *app.ModelManager, log *zap.Logger) error {
	fmt.Fprintf(os.Stderr, "voxbot v%s (commit: %s, branch: %s, built: %s)\n",
		Version, GitCommit, GitBranch, BuildTime)

	p, err := app.NewPilot(cfg, log)
	if err != nil {
		return err
	}

	return app.RunWithPilot(ctx, p, func(ctx context.Context) error {
		return drive(ctx, cfg, mgr, p, log)
	})
}

// drive runs the selected input mode until ctx is cancelled or input ends
func drive(ctx context.Context, cfg *config.Config, mgr *app.ModelManager, p *pilot.Pilot, log *zap.Logger) error {
	// status lines stay off stdout, which may carry JSON records
	console := output.NewConsoleOutput(output.ConsoleConfig{ShowTimestamp: true, Writer: os.Stderr})
	formatter, err := output.NewFormatter(cfg.Output.Format, os.Stdout)
	if err != nil {
		return err
	}
	defer formatter.Close()

	dispatcher := app.NewDispatcher(p, formatter, log)

	hotkeys := input.NewHotkeyManager(log)
	if err := hotkeys.Bind("stop", cfg.Hotkey.Stop, func() {
		if err := dispatcher.Stop(ctx, app.SourceHotkey); err != nil {
			log.Warn("emergency stop failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	switch *mode {
	case "text":
		startHotkeys(ctx, hotkeys, log)
		defer hotkeys.Stop()

		fmt.Fprintln(os.Stderr, "Type commands, one per line. Ctrl+D to exit.")
		return app.NewTextInput(os.Stdin, dispatcher, log).Run(ctx)

	case "listen", "ptt":
	default:
		return fmt.Errorf("unknown mode: %s (valid: listen, ptt, text)", *mode)
	}

	engine, selectedModel, err := mgr.OpenRecognizer(ctx, app.RecognizerOptions{
		Model:        cfg.Model.Default,
		Interactive:  *selectModel,
		AutoDownload: *autoDownload,
		Grammar:      cfg.STT.Grammar,
	}, p.Vocabulary(), log)
	if err != nil {
		return err
	}
	defer engine.Close()

	device, err := app.NewDeviceManager(os.Stderr).SelectDevice(cfg.Audio.Device)
	if err != nil {
		return err
	}

	capture := audio.ConfigForModel(selectedModel)
	capture.DeviceID = device.ID

	if *mode == "ptt" {
		ptt := app.NewPushToTalk(capture, engine, dispatcher, formatter, log)
		var toggle input.Toggle
		if err := hotkeys.Bind("talk", cfg.Hotkey.Talk, func() {
			ptt.Toggle(toggle.Flip())
		}); err != nil {
			return err
		}
		if err := hotkeys.Start(ctx); err != nil {
			return fmt.Errorf("failed to start hotkey listener: %w", err)
		}
		defer hotkeys.Stop()

		console.Info(fmt.Sprintf("Push-to-talk mode. Press %s to toggle recording, %s to stop the robot.",
			cfg.Hotkey.Talk, cfg.Hotkey.Stop))
		return ptt.Run(ctx)
	}

	startHotkeys(ctx, hotkeys, log)
	defer hotkeys.Stop()

	capturer, err := audio.NewCapturer(capture)
	if err != nil {
		return fmt.Errorf("failed to create capturer: %w", err)
	}

	listenerConfig := app.ListenerConfig{Capture: capture}
	if cfg.VAD.Enabled {
		vad := audio.VADConfigFor(capture, cfg.VAD.Threshold,
			time.Duration(cfg.VAD.SilenceDelay*float64(time.Second)))
		listenerConfig.VAD = &vad
	}
	if *showMeter {
		listenerConfig.Meter = console
	}

	console.Info(fmt.Sprintf("Listening on %s. Speak a command; press Ctrl+C to exit.", device.Name))
	return app.NewListener(listenerConfig, engine, capturer, dispatcher, formatter, log).Run(ctx)
}

// startHotkeys arms the emergency stop hotkey where a desktop session allows it
func startHotkeys(ctx context.Context, hotkeys *input.HotkeyManager, log *zap.Logger) {
	if err := hotkeys.Start(ctx); err != nil {
		log.Warn("stop hotkey unavailable", zap.Error(err))
	}
}
