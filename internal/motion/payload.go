package motion

import "github.com/emmett/voxbot/internal/command"

// LED intensities for the uniform speed-change ring patterns
const (
	FastGlow = 100
	SlowGlow = 10
)

// Color is an RGB value for the top LED (0-255 per channel)
type Color struct {
	R, G, B int
}

var (
	// Green marks a recognized command being executed
	Green = Color{0, 255, 0}
	// Red marks an unrecognized utterance
	Red = Color{255, 0, 0}
)

// Outcome describes what an Apply call did to the motion state
type Outcome int

const (
	// Applied means the command was carried out
	Applied Outcome = iota
	// Ineffective means a modifier arrived while the robot was not moving
	Ineffective
	// Unrecognized means the utterance did not match any command
	Unrecognized
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Ineffective:
		return "ineffective"
	case Unrecognized:
		return "unrecognized"
	default:
		return "outcome(?)"
	}
}

// Payload is the actuation request produced by one Apply call
type Payload struct {
	// Left and Right are the wheel speed targets
	Left  int
	Right int

	// Circle holds the 8 ring LEDs, index 0 at the front, clockwise
	Circle [8]int

	// Top is the color of the top LED
	Top Color

	// Motors is false when wheel targets must not be pushed (alert payload)
	Motors bool

	Outcome Outcome
}

// Alert returns the payload emitted for an unrecognized utterance
func Alert() Payload {
	return Payload{Top: Red, Outcome: Unrecognized}
}

// PayloadFor computes the payload for a category from the post-transition
// state. Apply always returns exactly this value for recognized categories.
func PayloadFor(s State, c command.Category) Payload {
	if !c.IsMotion() {
		return Alert()
	}

	p := Payload{Top: Green, Motors: true, Outcome: Applied}
	if !s.Moving() && c != command.Forward && c != command.Backward && c != command.Stop {
		p.Outcome = Ineffective
		return p
	}

	v := s.Direction.Sign() * s.Speed
	spd := s.Speed
	switch c {
	case command.SpeedUp:
		p.Left, p.Right = v, v
		p.Circle = uniform(FastGlow)
	case command.SlowDown:
		p.Left, p.Right = v, v
		p.Circle = uniform(SlowGlow)
	case command.Forward, command.Backward:
		p.Left, p.Right = v, v
		if s.Direction == Forward {
			p.Circle = [8]int{spd, spd, 0, 0, 0, 0, spd, spd}
		} else {
			p.Circle = [8]int{0, 0, spd, spd, spd, spd, 0, 0}
		}
	case command.Right:
		p.Left, p.Right = v, v/TurnDivisor
		p.Circle = [8]int{spd, spd, spd, spd, 0, 0, 0, 0}
	case command.Left:
		p.Left, p.Right = v/TurnDivisor, v
		p.Circle = [8]int{0, 0, 0, 0, spd, spd, spd, spd}
	case command.Stop:
		// all zero
	}
	return p
}

func uniform(level int) [8]int {
	var leds [8]int
	for i := range leds {
		leds[i] = level
	}
	return leds
}
