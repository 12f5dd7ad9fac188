package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/audio"
	"github.com/emmett/voxbot/internal/config"
	"github.com/emmett/voxbot/internal/models"
	"github.com/emmett/voxbot/internal/server/mcp"
	"github.com/emmett/voxbot/internal/stt"
)

// MCPHandler runs the robot as an MCP tool server on stdio
type MCPHandler struct {
	config    *config.Config
	modelName string
	version   string
	gitCommit string
	status    io.Writer
	log       *zap.Logger
}

// NewMCPHandler creates a new MCP handler. Status text goes to status,
// never to stdout, which carries the protocol.
func NewMCPHandler(cfg *config.Config, modelName, version, gitCommit string, status io.Writer, log *zap.Logger) *MCPHandler {
	return &MCPHandler{
		config:    cfg,
		modelName: modelName,
		version:   version,
		gitCommit: gitCommit,
		status:    status,
		log:       log,
	}
}

// Run serves until ctx is cancelled or the client disconnects, then halts the robot
func (h *MCPHandler) Run(ctx context.Context) error {
	fmt.Fprintf(h.status, "Starting MCP server...\n")
	fmt.Fprintf(h.status, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(h.status, "Version: %s (commit: %s)\n\n", h.version, h.gitCommit)

	store, err := models.NewStore(h.config.Model.Dir)
	if err != nil {
		return err
	}

	p, err := NewPilot(h.config, h.log)
	if err != nil {
		return err
	}

	var transcriber mcp.Transcriber
	clip, modelName, err := h.openTranscriber(store, p.Vocabulary().Keywords())
	if err != nil {
		h.log.Warn("transcribe_command disabled", zap.Error(err))
	} else {
		defer clip.engine.Close()
		transcriber = clip.ClipTranscriber
	}

	h.printClientConfig(modelName)

	server := mcp.NewServer(mcp.Config{
		ServerName:    "voxbot-mcp",
		ServerVersion: h.version,
	}, p, transcriber, store, h.log)

	fmt.Fprintf(h.status, "MCP server ready. Listening on stdin/stdout...\n")
	fmt.Fprintf(h.status, "Press Ctrl+C to stop.\n\n")

	err = RunWithPilot(ctx, p, server.Run)
	fmt.Fprintf(h.status, "\nShutting down MCP server...\n")
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

type clipEngine struct {
	*stt.ClipTranscriber
	engine *stt.VoskEngine
}

func (h *MCPHandler) openTranscriber(store *models.Store, keywords []string) (*clipEngine, string, error) {
	name := h.modelName
	if name == "" {
		name = h.config.Model.Default
	}
	if name == "" {
		var err error
		if name, err = store.DefaultModel(); err != nil {
			return nil, "", fmt.Errorf("failed to get default model: %w", err)
		}
	}

	path, err := store.Path(name)
	if err != nil {
		return nil, name, fmt.Errorf("%w; download it first using:\n  voxbot --download-model %s", err, name)
	}

	sttConfig := stt.DefaultConfig(path)
	if h.config.STT.Grammar && store.SupportsGrammar(name) {
		sttConfig.Grammar = keywords
	}

	engine := stt.NewVoskEngine()
	if err := engine.Initialize(sttConfig); err != nil {
		return nil, name, fmt.Errorf("failed to initialize recognizer: %w", err)
	}

	capture := audio.ConfigForModel(name)
	var vad *audio.VADConfig
	if h.config.VAD.Enabled {
		v := audio.VADConfigFor(capture, h.config.VAD.Threshold,
			time.Duration(h.config.VAD.SilenceDelay*float64(time.Second)))
		vad = &v
	}

	fmt.Fprintf(h.status, "Using model: %s\n", name)
	fmt.Fprintf(h.status, "Model path: %s\n\n", path)

	return &clipEngine{
		ClipTranscriber: stt.NewClipTranscriber(engine, capture, vad),
		engine:          engine,
	}, name, nil
}

func (h *MCPHandler) printClientConfig(modelName string) {
	execPath, err := os.Executable()
	if err != nil {
		execPath = "./build/voxbot-mcp"
	}

	args := []string{}
	if modelName != "" {
		args = append(args, "--model", modelName)
	}

	type serverEntry struct {
		Type    string   `json:"type,omitempty"`
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	clientConfig := struct {
		MCPServers map[string]serverEntry `json:"mcpServers"`
	}{
		MCPServers: map[string]serverEntry{
			"voxbot": {Command: execPath, Args: args},
		},
	}

	if data, err := json.MarshalIndent(clientConfig, "", "  "); err == nil {
		fmt.Fprintf(h.status, "MCP Client Configuration:\n%s\n\n", data)
	}

	if data, err := json.Marshal(serverEntry{Type: "stdio", Command: execPath, Args: args}); err == nil {
		fmt.Fprintf(h.status, "Add to a client that accepts JSON server entries:\n%s\n\n", data)
	}
}
