package robot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/voxbot/internal/motion"
)

// NoStartupBehavior disables the connection confirmation behavior
const NoStartupBehavior = -1

// ActuatorConfig configures delivery to the robot
type ActuatorConfig struct {
	// StartupBehavior is run once per established link (system sound index)
	StartupBehavior int

	// Timeout bounds each connect or delivery attempt
	Timeout time.Duration
}

// DefaultActuatorConfig plays system sound 0 on connect
func DefaultActuatorConfig() ActuatorConfig {
	return ActuatorConfig{
		StartupBehavior: 0,
		Timeout:         3 * time.Second,
	}
}

// Actuator owns the link to the robot. It connects lazily, drops the link
// after a failed delivery and reconnects on the next one.
// It is not safe for concurrent use.
type Actuator struct {
	connector Connector
	config    ActuatorConfig
	link      Link
	log       *zap.Logger
}

// NewActuator creates an actuator; no connection is made until needed
func NewActuator(connector Connector, config ActuatorConfig, log *zap.Logger) *Actuator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Actuator{
		connector: connector,
		config:    config,
		log:       log.With(zap.String("component", "actuator")),
	}
}

// Connected reports whether a link is currently held
func (a *Actuator) Connected() bool {
	return a.link != nil
}

// Connect establishes the link if none is held and plays the startup behavior
func (a *Actuator) Connect(ctx context.Context) error {
	if a.link != nil {
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	link, err := a.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	a.link = link
	a.log.Info("robot connected")

	if a.config.StartupBehavior >= 0 {
		if err := link.RunBehavior(ctx, a.config.StartupBehavior); err != nil {
			// a failed confirmation sound does not drop the link
			a.log.Warn("startup behavior failed", zap.Int("index", a.config.StartupBehavior), zap.Error(err))
		}
	}
	return nil
}

// Deliver pushes a payload to the robot, connecting first if needed
func (a *Actuator) Deliver(ctx context.Context, p motion.Payload) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.link.SetVariables(ctx, Variables(p)); err != nil {
		a.drop()
		return fmt.Errorf("failed to deliver payload: %w", err)
	}
	return nil
}

// Close halts the robot, darkens its LEDs and releases the link
func (a *Actuator) Close(ctx context.Context) error {
	if a.link == nil {
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	halt := map[string][]int{
		VarMotorLeft:  {0},
		VarMotorRight: {0},
		VarLedsCircle: make([]int, 8),
		VarLedsTop:    {0, 0, 0},
		VarLedsBottom: {0, 0, 0},
	}
	haltErr := a.link.SetVariables(ctx, halt)
	if haltErr != nil {
		a.log.Warn("failed to halt robot", zap.Error(haltErr))
	}

	err := a.link.Close()
	a.link = nil
	if err != nil {
		return fmt.Errorf("failed to close robot link: %w", err)
	}
	return haltErr
}

func (a *Actuator) drop() {
	if a.link == nil {
		return
	}
	if err := a.link.Close(); err != nil {
		a.log.Debug("closing failed link", zap.Error(err))
	}
	a.link = nil
	a.log.Warn("robot link dropped, will reconnect on next command")
}

func (a *Actuator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Timeout)
}
