package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/command"
	"github.com/emmett/voxbot/internal/models"
	"github.com/emmett/voxbot/internal/motion"
	"github.com/emmett/voxbot/internal/pilot"
)

// Driver is the part of the pilot the tools use
type Driver interface {
	Say(ctx context.Context, utterance string) (pilot.Result, error)
	Command(ctx context.Context, c command.Category) (pilot.Result, error)
	State(ctx context.Context) (motion.State, error)
	Vocabulary() *command.Vocabulary
}

// Transcriber turns a PCM clip into text with recognizer placeholders such as
// [unk] already removed
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, float64, error)
}

type Config struct {
	ServerName    string
	ServerVersion string
}

// Server exposes the robot as MCP tools over stdio
type Server struct {
	config      Config
	mcpServer   *sdk.Server
	driver      Driver
	transcriber Transcriber
	store       *models.Store
	log         *zap.Logger
}

// NewServer registers the tools. transcriber and store may be nil, which
// leaves out transcribe_command and list_models.
func NewServer(cfg Config, driver Driver, transcriber Transcriber, store *models.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:      cfg,
		driver:      driver,
		transcriber: transcriber,
		store:       store,
		log:         log.With(zap.String("component", "mcp")),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()
	return s
}

// Run serves on stdin/stdout until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *sdk.Server {
	return s.mcpServer
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "drive",
		Description: "Send a spoken-style command to the robot, e.g. \"go forward\", \"faster\", \"turn left\", \"stop\"",
	}, s.handleDrive)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop",
		Description: "Stop the robot immediately",
	}, s.handleStop)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "robot_state",
		Description: "Report the robot's current direction and speed",
	}, s.handleState)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_commands",
		Description: "List the command words understood, per command, in matching priority order",
	}, s.handleListCommands)

	if s.transcriber != nil {
		sdk.AddTool(s.mcpServer, &sdk.Tool{
			Name:        "transcribe_command",
			Description: "Transcribe a recorded voice command and send it to the robot",
		}, s.handleTranscribeCommand)
	}

	if s.store != nil {
		sdk.AddTool(s.mcpServer, &sdk.Tool{
			Name:        "list_models",
			Description: "List downloaded Vosk models",
		}, s.handleListModels)
	}
}
