package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emmett/voxbot/internal/command"
	"github.com/emmett/voxbot/internal/motion"
	"github.com/emmett/voxbot/internal/robot"
)

const (
	// UserConfigName is looked up in the home directory
	UserConfigName = ".voxbotrc"
	// SystemConfigPath is the machine wide fallback
	SystemConfigPath = "/etc/voxbot/config.yaml"
)

// Config represents the application configuration
type Config struct {
	// Model settings
	Model struct {
		Default string `yaml:"default"`
		Dir     string `yaml:"dir"`
	} `yaml:"model"`

	// Recognizer settings
	STT struct {
		// Grammar restricts recognition to the command keywords
		Grammar bool `yaml:"grammar"`
	} `yaml:"stt"`

	// VAD settings
	VAD struct {
		Enabled      bool    `yaml:"enabled"`
		Threshold    float64 `yaml:"threshold"`
		SilenceDelay float64 `yaml:"silence_delay"`
	} `yaml:"vad"`

	// Output settings
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`

	// Audio settings
	Audio struct {
		Device string `yaml:"device"`
	} `yaml:"audio"`

	// Motion bounds
	Motion struct {
		MinSpeed     int `yaml:"min_speed"`
		MaxSpeed     int `yaml:"max_speed"`
		SpeedStep    int `yaml:"speed_step"`
		DefaultSpeed int `yaml:"default_speed"`
	} `yaml:"motion"`

	// Robot link settings
	Robot struct {
		URL             string `yaml:"url"` // voxbot bridge, see robot.Dialer
		Node            string `yaml:"node"`
		DryRun          bool   `yaml:"dry_run"`
		StartupBehavior int    `yaml:"startup_behavior"`
		TimeoutMS       int    `yaml:"timeout_ms"`
	} `yaml:"robot"`

	// Vocabulary adds keywords per category name, e.g. forward: [go, ahead]
	Vocabulary map[string][]string `yaml:"vocabulary"`

	// Hotkey settings
	Hotkey struct {
		Talk string `yaml:"talk"`
		Stop string `yaml:"stop"`
	} `yaml:"hotkey"`

	// Log settings
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Model defaults
	cfg.Model.Default = ""
	cfg.Model.Dir = ""

	cfg.STT.Grammar = false

	// VAD defaults
	cfg.VAD.Enabled = true
	cfg.VAD.Threshold = 0.01
	cfg.VAD.SilenceDelay = 1.0

	cfg.Output.Format = "console"

	cfg.Audio.Device = ""

	m := motion.DefaultConfig()
	cfg.Motion.MinSpeed = m.MinSpeed
	cfg.Motion.MaxSpeed = m.MaxSpeed
	cfg.Motion.SpeedStep = m.SpeedStep
	cfg.Motion.DefaultSpeed = m.DefaultSpeed

	a := robot.DefaultActuatorConfig()
	cfg.Robot.URL = "ws://localhost:8597/robot"
	cfg.Robot.Node = ""
	cfg.Robot.DryRun = false
	cfg.Robot.StartupBehavior = a.StartupBehavior
	cfg.Robot.TimeoutMS = int(a.Timeout / time.Millisecond)

	cfg.Hotkey.Talk = "ctrl+shift+space"
	cfg.Hotkey.Stop = "ctrl+shift+s"

	cfg.Log.Level = "info"
	cfg.Log.Development = false

	return cfg
}

// Load reads a config file and validates it
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads configuration from file, then applies VOXBOT_* overrides.
// The result is not validated, so callers can layer flags on top first.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// ReadWithFallback attempts to read configuration from multiple locations
// Priority: explicit path > ~/.voxbotrc > /etc/voxbot/config.yaml
func ReadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Read(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, UserConfigName)
		if _, err := os.Stat(userConfigPath); err == nil {
			return Read(userConfigPath)
		}
	}

	if _, err := os.Stat(SystemConfigPath); err == nil {
		return Read(SystemConfigPath)
	}

	// No config file found, defaults plus environment
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the sections that would otherwise fail late at startup
func (c *Config) Validate() error {
	if err := c.MotionConfig().Validate(); err != nil {
		return err
	}
	if _, err := c.BuildVocabulary(); err != nil {
		return err
	}
	switch c.Output.Format {
	case "console", "json", "text":
	default:
		return fmt.Errorf("output.format must be console, json or text, got %q", c.Output.Format)
	}
	if c.VAD.Threshold < 0 {
		return errors.New("vad.threshold must not be negative")
	}
	if c.VAD.SilenceDelay < 0 {
		return errors.New("vad.silence_delay must not be negative")
	}
	if !c.Robot.DryRun && strings.TrimSpace(c.Robot.URL) == "" {
		return errors.New("robot.url must not be empty unless robot.dry_run is set")
	}
	if c.Robot.TimeoutMS < 0 {
		return errors.New("robot.timeout_ms must not be negative")
	}
	return nil
}

// MotionConfig returns the speed bounds for the motion controller
func (c *Config) MotionConfig() motion.Config {
	return motion.Config{
		MinSpeed:     c.Motion.MinSpeed,
		MaxSpeed:     c.Motion.MaxSpeed,
		SpeedStep:    c.Motion.SpeedStep,
		DefaultSpeed: c.Motion.DefaultSpeed,
	}
}

// ActuatorConfig returns the robot delivery settings
func (c *Config) ActuatorConfig() robot.ActuatorConfig {
	return robot.ActuatorConfig{
		StartupBehavior: c.Robot.StartupBehavior,
		Timeout:         time.Duration(c.Robot.TimeoutMS) * time.Millisecond,
	}
}

// BuildVocabulary extends the built-in keyword table with the configured words
func (c *Config) BuildVocabulary() (*command.Vocabulary, error) {
	if len(c.Vocabulary) == 0 {
		return command.DefaultVocabulary(), nil
	}

	names := make([]string, 0, len(c.Vocabulary))
	for name := range c.Vocabulary {
		names = append(names, name)
	}
	sort.Strings(names)

	extra := make(map[command.Category][]string, len(names))
	for _, name := range names {
		cat, err := command.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: %w", err)
		}
		extra[cat] = append(extra[cat], c.Vocabulary[name]...)
	}

	vocab, err := command.NewVocabulary(extra)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	return vocab, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Model.Default, "VOXBOT_MODEL")
	overrideString(&cfg.Model.Dir, "VOXBOT_MODEL_DIR")
	overrideBool(&cfg.STT.Grammar, "VOXBOT_STT_GRAMMAR")
	overrideBool(&cfg.VAD.Enabled, "VOXBOT_VAD_ENABLED")
	overrideFloat(&cfg.VAD.Threshold, "VOXBOT_VAD_THRESHOLD")
	overrideFloat(&cfg.VAD.SilenceDelay, "VOXBOT_VAD_SILENCE_DELAY")
	overrideString(&cfg.Output.Format, "VOXBOT_OUTPUT_FORMAT")
	overrideString(&cfg.Audio.Device, "VOXBOT_AUDIO_DEVICE")
	overrideInt(&cfg.Motion.MinSpeed, "VOXBOT_MOTION_MIN_SPEED")
	overrideInt(&cfg.Motion.MaxSpeed, "VOXBOT_MOTION_MAX_SPEED")
	overrideInt(&cfg.Motion.SpeedStep, "VOXBOT_MOTION_SPEED_STEP")
	overrideInt(&cfg.Motion.DefaultSpeed, "VOXBOT_MOTION_DEFAULT_SPEED")
	overrideString(&cfg.Robot.URL, "VOXBOT_ROBOT_URL")
	overrideString(&cfg.Robot.Node, "VOXBOT_ROBOT_NODE")
	overrideBool(&cfg.Robot.DryRun, "VOXBOT_ROBOT_DRY_RUN")
	overrideInt(&cfg.Robot.StartupBehavior, "VOXBOT_ROBOT_STARTUP_BEHAVIOR")
	overrideInt(&cfg.Robot.TimeoutMS, "VOXBOT_ROBOT_TIMEOUT_MS")
	overrideString(&cfg.Hotkey.Talk, "VOXBOT_HOTKEY_TALK")
	overrideString(&cfg.Hotkey.Stop, "VOXBOT_HOTKEY_STOP")
	overrideString(&cfg.Log.Level, "VOXBOT_LOG_LEVEL")
	overrideBool(&cfg.Log.Development, "VOXBOT_LOG_DEVELOPMENT")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}
