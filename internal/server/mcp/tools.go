package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/command"
	"github.com/emmett/voxbot/internal/output"
	"github.com/emmett/voxbot/internal/pilot"
)

type DriveArgs struct {
	Utterance string `json:"utterance" jsonschema:"the words spoken to the robot"`
}

type TranscribeArgs struct {
	Audio string `json:"audio" jsonschema:"base64-encoded audio, 16kHz mono 16-bit little-endian PCM"`
}

type NoArgs struct{}

// CommandOutput is the structured result of a command tool
type CommandOutput struct {
	Transcript string `json:"transcript,omitempty"`
	Utterance  string `json:"utterance,omitempty"`
	Command    string `json:"command"`
	Outcome    string `json:"outcome"`
	Left       int    `json:"left"`
	Right      int    `json:"right"`
	Circle     []int  `json:"circle"`
	Direction  string `json:"direction"`
	Speed      int    `json:"speed"`
	Delivered  bool   `json:"delivered"`
	Error      string `json:"error,omitempty"`
}

type StateOutput struct {
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
	Moving    bool   `json:"moving"`
}

type CommandWords struct {
	Command string   `json:"command"`
	Words   []string `json:"words"`
}

type ListCommandsOutput struct {
	Commands []CommandWords `json:"commands"`
}

type ListModelsOutput struct {
	Models []string `json:"models"`
}

func (s *Server) handleDrive(ctx context.Context, req *sdk.CallToolRequest, args DriveArgs) (*sdk.CallToolResult, CommandOutput, error) {
	res, err := s.driver.Say(ctx, args.Utterance)
	if err != nil {
		if errors.Is(err, pilot.ErrEmptyUtterance) {
			return nil, CommandOutput{}, fmt.Errorf("utterance must not be empty")
		}
		return nil, CommandOutput{}, err
	}
	return s.commandResult(res, "")
}

func (s *Server) handleStop(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, CommandOutput, error) {
	res, err := s.driver.Command(ctx, command.Stop)
	if err != nil {
		return nil, CommandOutput{}, err
	}
	return s.commandResult(res, "")
}

func (s *Server) handleState(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, StateOutput, error) {
	state, err := s.driver.State(ctx)
	if err != nil {
		return nil, StateOutput{}, err
	}

	out := StateOutput{
		Direction: state.Direction.String(),
		Speed:     state.Speed,
		Moving:    state.Moving(),
	}
	text := fmt.Sprintf("stopped, speed %d", out.Speed)
	if out.Moving {
		text = fmt.Sprintf("moving %s at speed %d", out.Direction, out.Speed)
	}
	return textResult(text), out, nil
}

func (s *Server) handleListCommands(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, ListCommandsOutput, error) {
	vocab := s.driver.Vocabulary()

	var out ListCommandsOutput
	lines := make([]string, 0, len(command.Priority))
	for _, c := range command.Priority {
		words := vocab.KeywordsFor(c)
		out.Commands = append(out.Commands, CommandWords{Command: c.String(), Words: words})
		lines = append(lines, fmt.Sprintf("%s: %s", c, strings.Join(words, ", ")))
	}
	return textResult(strings.Join(lines, "\n")), out, nil
}

func (s *Server) handleTranscribeCommand(ctx context.Context, req *sdk.CallToolRequest, args TranscribeArgs) (*sdk.CallToolResult, CommandOutput, error) {
	pcm, err := base64.StdEncoding.DecodeString(args.Audio)
	if err != nil {
		return nil, CommandOutput{}, fmt.Errorf("invalid base64 audio: %w", err)
	}

	text, confidence, err := s.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		return nil, CommandOutput{}, err
	}
	s.log.Debug("clip transcribed", zap.String("text", text), zap.Float64("confidence", confidence))

	if strings.TrimSpace(text) == "" {
		return nil, CommandOutput{}, fmt.Errorf("no speech detected")
	}

	res, err := s.driver.Say(ctx, text)
	if err != nil {
		return nil, CommandOutput{}, err
	}
	return s.commandResult(res, text)
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, args NoArgs) (*sdk.CallToolResult, ListModelsOutput, error) {
	downloaded, err := s.store.ListDownloaded()
	if err != nil {
		return nil, ListModelsOutput{}, fmt.Errorf("failed to list models: %w", err)
	}
	if downloaded == nil {
		downloaded = []string{}
	}

	text := fmt.Sprintf("Downloaded models (%d):", len(downloaded))
	for _, name := range downloaded {
		text += "\n- " + name
	}
	return textResult(text), ListModelsOutput{Models: downloaded}, nil
}

func (s *Server) commandResult(res pilot.Result, transcript string) (*sdk.CallToolResult, CommandOutput, error) {
	out := CommandOutput{
		Transcript: transcript,
		Utterance:  res.Utterance,
		Command:    res.Category.String(),
		Outcome:    res.Payload.Outcome.String(),
		Left:       res.Payload.Left,
		Right:      res.Payload.Right,
		Circle:     res.Payload.Circle[:],
		Direction:  res.State.Direction.String(),
		Speed:      res.State.Speed,
		Delivered:  res.Delivered,
	}
	if res.DeliveryErr != nil {
		out.Error = res.DeliveryErr.Error()
	}

	summary := output.Summary(output.CommandRecord{
		Utterance: out.Utterance,
		Command:   out.Command,
		Outcome:   out.Outcome,
		Left:      out.Left,
		Right:     out.Right,
		Direction: out.Direction,
		Speed:     out.Speed,
		Delivered: out.Delivered,
		Error:     out.Error,
	})
	return textResult(summary), out, nil
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}
