package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emmett/voxbot/internal/config"
	"github.com/emmett/voxbot/internal/motion"
	"github.com/emmett/voxbot/internal/pilot"
	"github.com/emmett/voxbot/internal/robot"
)

// NewPilot wires the vocabulary, controller and robot link described by cfg.
// The caller runs the returned pilot.
func NewPilot(cfg *config.Config, log *zap.Logger) (*pilot.Pilot, error) {
	vocab, err := cfg.BuildVocabulary()
	if err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}

	ctrl, err := motion.NewController(cfg.MotionConfig())
	if err != nil {
		return nil, fmt.Errorf("invalid motion settings: %w", err)
	}

	actuatorConfig := cfg.ActuatorConfig()

	var connector robot.Connector
	if cfg.Robot.DryRun {
		connector = robot.DryRun{Logger: log}
	} else {
		connector = &robot.Dialer{
			URL:              cfg.Robot.URL,
			Node:             cfg.Robot.Node,
			HandshakeTimeout: actuatorConfig.Timeout,
			RequestTimeout:   actuatorConfig.Timeout,
			Logger:           log,
		}
	}

	actuator := robot.NewActuator(connector, actuatorConfig, log)
	return pilot.New(vocab, ctrl, actuator, log), nil
}

// RunWithPilot runs the pilot alongside loop. The pilot keeps serving until
// loop returns, even after ctx is cancelled, then halts the robot.
func RunWithPilot(ctx context.Context, p *pilot.Pilot, loop func(ctx context.Context) error) error {
	pilotCtx, stopPilot := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPilot()

	g := new(errgroup.Group)
	g.Go(func() error {
		return p.Run(pilotCtx)
	})
	g.Go(func() error {
		defer stopPilot()
		return loop(ctx)
	})
	return g.Wait()
}
