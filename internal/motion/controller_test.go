package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxbot/internal/command"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(DefaultConfig())
	require.NoError(t, err)
	return c
}

var allCategories = []command.Category{
	command.Unknown, command.Forward, command.Backward, command.Left,
	command.Right, command.Stop, command.SpeedUp, command.SlowDown,
}

func TestNewController_Defaults(t *testing.T) {
	c := newController(t)
	assert.Equal(t, State{Direction: Neutral, Speed: 150}, c.State())
	assert.Equal(t, DefaultConfig(), c.Config())
}

func TestNewController_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"min above max", Config{MinSpeed: 500, MaxSpeed: 450, SpeedStep: 50, DefaultSpeed: 450}},
		{"zero step", Config{MinSpeed: 50, MaxSpeed: 450, SpeedStep: 0, DefaultSpeed: 150}},
		{"negative step", Config{MinSpeed: 50, MaxSpeed: 450, SpeedStep: -5, DefaultSpeed: 150}},
		{"zero min", Config{MinSpeed: 0, MaxSpeed: 450, SpeedStep: 50, DefaultSpeed: 150}},
		{"min below turn divisor", Config{MinSpeed: 1, MaxSpeed: 3, SpeedStep: 1, DefaultSpeed: 1}},
		{"default below min", Config{MinSpeed: 50, MaxSpeed: 450, SpeedStep: 50, DefaultSpeed: 10}},
		{"default above max", Config{MinSpeed: 50, MaxSpeed: 450, SpeedStep: 50, DefaultSpeed: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewController(tt.cfg)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestNewController_EqualBounds(t *testing.T) {
	c, err := NewController(Config{MinSpeed: 90, MaxSpeed: 90, SpeedStep: 20, DefaultSpeed: 90})
	require.NoError(t, err)
	c.Apply(command.Forward)
	c.Apply(command.SpeedUp)
	assert.Equal(t, 90, c.State().Speed)
	c.Apply(command.SlowDown)
	assert.Equal(t, 90, c.State().Speed)
}

func TestNewController_SmallestTurnableSpeed(t *testing.T) {
	c, err := NewController(Config{MinSpeed: TurnDivisor, MaxSpeed: 3 * TurnDivisor, SpeedStep: 1, DefaultSpeed: TurnDivisor})
	require.NoError(t, err)

	c.Apply(command.Backward)
	p := c.Apply(command.Left)
	assert.Equal(t, -1, p.Left)
	assert.Equal(t, -TurnDivisor, p.Right)
}

func TestApply_Forward(t *testing.T) {
	c := newController(t)

	p := c.Apply(command.Forward)

	assert.Equal(t, State{Direction: Forward, Speed: 150}, c.State())
	assert.Equal(t, 150, p.Left)
	assert.Equal(t, 150, p.Right)
	assert.Equal(t, [8]int{150, 150, 0, 0, 0, 0, 150, 150}, p.Circle)
	assert.Equal(t, Green, p.Top)
	assert.True(t, p.Motors)
	assert.Equal(t, Applied, p.Outcome)
}

func TestApply_TurnRight(t *testing.T) {
	c := newController(t)
	c.Apply(command.Forward)

	p := c.Apply(command.Right)

	assert.Equal(t, State{Direction: Forward, Speed: 150}, c.State())
	assert.Equal(t, 150, p.Left)
	assert.Equal(t, 37, p.Right)
	assert.Equal(t, [8]int{150, 150, 150, 150, 0, 0, 0, 0}, p.Circle)
}

func TestApply_TurnLeftBackward(t *testing.T) {
	c := newController(t)
	c.Apply(command.Backward)

	p := c.Apply(command.Left)

	assert.Equal(t, -37, p.Left, "integer division truncates toward zero")
	assert.Equal(t, -150, p.Right)
	assert.Equal(t, [8]int{0, 0, 0, 0, 150, 150, 150, 150}, p.Circle)

	p = c.Apply(command.Right)
	assert.Equal(t, -150, p.Left)
	assert.Equal(t, -37, p.Right)
}

func TestApply_SpeedUpWhileMoving(t *testing.T) {
	c := newController(t)
	c.Apply(command.Forward)

	p := c.Apply(command.SpeedUp)

	assert.Equal(t, State{Direction: Forward, Speed: 200}, c.State())
	assert.Equal(t, 200, p.Left)
	assert.Equal(t, 200, p.Right)
	assert.Equal(t, uniform(FastGlow), p.Circle)
}

func TestApply_SlowDownBackward(t *testing.T) {
	c := newController(t)
	c.Apply(command.Backward)

	p := c.Apply(command.SlowDown)

	assert.Equal(t, State{Direction: Backward, Speed: 100}, c.State())
	assert.Equal(t, -100, p.Left)
	assert.Equal(t, -100, p.Right)
	assert.Equal(t, uniform(SlowGlow), p.Circle)
}

func TestApply_ModifiersWhileStopped(t *testing.T) {
	for _, cat := range []command.Category{command.SpeedUp, command.SlowDown, command.Left, command.Right} {
		t.Run(cat.String(), func(t *testing.T) {
			c := newController(t)

			p := c.Apply(cat)

			assert.Equal(t, State{Direction: Neutral, Speed: 150}, c.State())
			assert.Equal(t, 0, p.Left)
			assert.Equal(t, 0, p.Right)
			assert.Equal(t, [8]int{}, p.Circle)
			assert.Equal(t, Ineffective, p.Outcome)
			assert.True(t, p.Motors)
		})
	}
}

func TestApply_StopIsIdempotent(t *testing.T) {
	c := newController(t)

	p := c.Apply(command.Stop)
	assert.Equal(t, State{Direction: Neutral, Speed: 150}, c.State())
	assert.Equal(t, 0, p.Left)
	assert.Equal(t, 0, p.Right)
	assert.Equal(t, [8]int{}, p.Circle)
	assert.Equal(t, Applied, p.Outcome)

	again := c.Apply(command.Stop)
	assert.Equal(t, p, again)
	assert.Equal(t, State{Direction: Neutral, Speed: 150}, c.State())
}

func TestApply_StopKeepsSpeed(t *testing.T) {
	c := newController(t)
	c.Apply(command.Forward)
	c.Apply(command.SpeedUp)
	c.Apply(command.Stop)

	assert.Equal(t, State{Direction: Neutral, Speed: 200}, c.State())

	p := c.Apply(command.Backward)
	assert.Equal(t, -200, p.Left)
}

func TestApply_Unknown(t *testing.T) {
	c := newController(t)
	c.Apply(command.Forward)
	before := c.State()

	p := c.Apply(command.Unknown)

	assert.Equal(t, before, c.State())
	assert.Equal(t, Alert(), p)
	assert.Equal(t, Red, p.Top)
	assert.False(t, p.Motors)
	assert.Equal(t, Unrecognized, p.Outcome)

	assert.Equal(t, Alert(), c.Apply(command.Category(42)))
	assert.Equal(t, before, c.State())
}

func TestApply_SpeedClamp(t *testing.T) {
	c := newController(t)
	c.Apply(command.Forward)

	for i := 0; i < 20; i++ {
		c.Apply(command.SpeedUp)
		assert.LessOrEqual(t, c.State().Speed, 450)
	}
	assert.Equal(t, 450, c.State().Speed)

	for i := 0; i < 20; i++ {
		c.Apply(command.SlowDown)
		assert.GreaterOrEqual(t, c.State().Speed, 50)
	}
	assert.Equal(t, 50, c.State().Speed)
}

func TestApply_ClampWithUnevenStep(t *testing.T) {
	c, err := NewController(Config{MinSpeed: 40, MaxSpeed: 90, SpeedStep: 20, DefaultSpeed: 60})
	require.NoError(t, err)
	c.Apply(command.Forward)

	c.Apply(command.SpeedUp)
	c.Apply(command.SpeedUp)
	assert.Equal(t, 90, c.State().Speed)

	c.Apply(command.SlowDown)
	c.Apply(command.SlowDown)
	c.Apply(command.SlowDown)
	assert.Equal(t, 40, c.State().Speed)
}

// Every reachable payload must be recomputable from the state it left behind.
func TestApply_PayloadMatchesState(t *testing.T) {
	c := newController(t)
	sequence := []command.Category{
		command.Right, command.SpeedUp, command.Forward, command.Right, command.SpeedUp,
		command.Left, command.Backward, command.SlowDown, command.SlowDown, command.SlowDown,
		command.Left, command.Stop, command.Stop, command.SlowDown, command.Backward,
		command.SpeedUp, command.SpeedUp, command.SpeedUp, command.SpeedUp, command.SpeedUp,
		command.SpeedUp, command.SpeedUp, command.SpeedUp, command.Forward, command.Right,
	}

	for i, cat := range sequence {
		p := c.Apply(cat)
		s := c.State()

		assert.Equal(t, PayloadFor(s, cat), p, "step %d (%s)", i, cat)
		assertInvariants(t, s, p)
	}
}

func TestApply_AllPairs(t *testing.T) {
	for _, first := range allCategories {
		for _, second := range allCategories {
			c := newController(t)
			c.Apply(command.Forward)
			c.Apply(first)
			p := c.Apply(second)
			if second.IsMotion() {
				assert.Equal(t, PayloadFor(c.State(), second), p, "%s then %s", first, second)
			}
			assertInvariants(t, c.State(), p)
		}
	}
}

func assertInvariants(t *testing.T, s State, p Payload) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Speed, 50)
	assert.LessOrEqual(t, s.Speed, 450)
	assert.Contains(t, []int{-1, 0, 1}, s.Direction.Sign())

	if !p.Motors {
		return
	}
	switch s.Direction {
	case Neutral:
		assert.Zero(t, p.Left)
		assert.Zero(t, p.Right)
	case Forward:
		assert.Positive(t, p.Left)
		assert.Positive(t, p.Right)
	case Backward:
		assert.Negative(t, p.Left)
		assert.Negative(t, p.Right)
	}
	assert.LessOrEqual(t, abs(p.Left), s.Speed)
	assert.LessOrEqual(t, abs(p.Right), s.Speed)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestDirectionAndOutcomeNames(t *testing.T) {
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "backward", Backward.String())
	assert.Equal(t, "neutral", Neutral.String())
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "ineffective", Ineffective.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
