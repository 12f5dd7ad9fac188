// Package robot delivers actuation payloads to a Thymio-class robot.
//
// A Link pushes named integer variables to the robot and starts built-in
// behaviors. Links are obtained from a Connector; the Actuator owns the
// connection lifecycle and reconnects after failures.
package robot

import (
	"context"
	"errors"

	"github.com/emmett/voxbot/internal/motion"
)

// Robot variable names
const (
	VarMotorLeft  = "motor.left.target"
	VarMotorRight = "motor.right.target"
	VarLedsCircle = "leds.circle"
	VarLedsTop    = "leds.top"
	VarLedsBottom = "leds.bottom"
)

// ErrNotConnected is returned when no link to the robot could be established
var ErrNotConnected = errors.New("robot not connected")

// Link is an established, locked connection to one robot
type Link interface {
	// SetVariables writes the given variables on the robot
	SetVariables(ctx context.Context, vars map[string][]int) error

	// RunBehavior starts a built-in behavior, e.g. a system sound
	RunBehavior(ctx context.Context, index int) error

	// Close releases the robot and the connection
	Close() error
}

// Connector establishes links
type Connector interface {
	Connect(ctx context.Context) (Link, error)
}

// Variables maps a payload to the robot variables pushed for it.
// The alert payload only changes the top LED.
func Variables(p motion.Payload) map[string][]int {
	vars := map[string][]int{
		VarLedsTop: {p.Top.R, p.Top.G, p.Top.B},
	}
	if !p.Motors {
		return vars
	}

	vars[VarMotorLeft] = []int{p.Left}
	vars[VarMotorRight] = []int{p.Right}
	vars[VarLedsCircle] = append([]int(nil), p.Circle[:]...)
	return vars
}
