// Package motion holds the robot's motion state machine. It turns command
// categories into wheel and LED targets.
//
// A Controller is not safe for concurrent use; callers serialize Apply.
package motion

import (
	"errors"
	"fmt"

	"github.com/emmett/voxbot/internal/command"
)

// TurnDivisor scales the inner wheel while turning
const TurnDivisor = 4

// ErrInvalidConfiguration is returned when speed bounds or step are malformed
var ErrInvalidConfiguration = errors.New("invalid motion configuration")

// Direction is the current travel sense of the robot
type Direction int

const (
	Neutral  Direction = 0
	Forward  Direction = 1
	Backward Direction = -1
)

// Sign returns +1, -1 or 0
func (d Direction) Sign() int {
	return int(d)
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "neutral"
	}
}

// State is the motion state owned by a Controller
type State struct {
	Direction Direction
	Speed     int
}

// Moving reports whether the robot is travelling
func (s State) Moving() bool {
	return s.Direction != Neutral
}

// Config holds speed limits for the controller
type Config struct {
	MinSpeed     int
	MaxSpeed     int
	SpeedStep    int
	DefaultSpeed int
}

// DefaultConfig returns the stock Thymio speed settings
func DefaultConfig() Config {
	return Config{
		MinSpeed:     50,
		MaxSpeed:     450,
		SpeedStep:    50,
		DefaultSpeed: 150,
	}
}

// Validate checks the speed bounds
func (c Config) Validate() error {
	if c.MinSpeed <= 0 {
		return fmt.Errorf("%w: min speed %d must be positive", ErrInvalidConfiguration, c.MinSpeed)
	}
	if c.MinSpeed < TurnDivisor {
		// the inner wheel of a turn would round to zero
		return fmt.Errorf("%w: min speed %d below turn divisor %d", ErrInvalidConfiguration, c.MinSpeed, TurnDivisor)
	}
	if c.MinSpeed > c.MaxSpeed {
		return fmt.Errorf("%w: min speed %d exceeds max speed %d", ErrInvalidConfiguration, c.MinSpeed, c.MaxSpeed)
	}
	if c.SpeedStep <= 0 {
		return fmt.Errorf("%w: speed step %d must be positive", ErrInvalidConfiguration, c.SpeedStep)
	}
	if c.DefaultSpeed < c.MinSpeed || c.DefaultSpeed > c.MaxSpeed {
		return fmt.Errorf("%w: default speed %d outside [%d, %d]",
			ErrInvalidConfiguration, c.DefaultSpeed, c.MinSpeed, c.MaxSpeed)
	}
	return nil
}

// Controller applies commands to the motion state
type Controller struct {
	config Config
	state  State
}

// NewController creates a stopped controller at the default speed
func NewController(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		config: config,
		state:  State{Direction: Neutral, Speed: config.DefaultSpeed},
	}, nil
}

// State returns the current motion state
func (c *Controller) State() State {
	return c.state
}

// Config returns the controller's speed settings
func (c *Controller) Config() Config {
	return c.config
}

// Apply transitions the state for a category and returns the payload for
// the new state. Unknown leaves the state untouched and returns Alert.
func (c *Controller) Apply(cat command.Category) Payload {
	switch cat {
	case command.SpeedUp:
		if c.state.Moving() {
			c.state.Speed = min(c.state.Speed+c.config.SpeedStep, c.config.MaxSpeed)
		}
	case command.SlowDown:
		if c.state.Moving() {
			c.state.Speed = max(c.state.Speed-c.config.SpeedStep, c.config.MinSpeed)
		}
	case command.Forward:
		c.state.Direction = Forward
	case command.Backward:
		c.state.Direction = Backward
	case command.Stop:
		c.state.Direction = Neutral
	case command.Left, command.Right:
		// steering does not change the recorded state
	}

	return PayloadFor(c.state, cat)
}
