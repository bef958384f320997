package control

import (
	"fmt"
	"math"
)

// MaxSteer bounds any steering command regardless of vehicle.
const MaxSteer = math.Pi / 4

// Acceleration is the discrete throttle intent of a command.
type Acceleration int

const (
	AccelerationNone Acceleration = iota
	AccelerationForward
	AccelerationReverse
)

func (a Acceleration) String() string {
	switch a {
	case AccelerationNone:
		return "none"
	case AccelerationForward:
		return "forward"
	case AccelerationReverse:
		return "reverse"
	default:
		return fmt.Sprintf("acceleration(%d)", int(a))
	}
}

// Valid reports whether a is one of the enumerated intents.
func (a Acceleration) Valid() bool {
	return a >= AccelerationNone && a <= AccelerationReverse
}

// Turn is the discrete steering bucket used by grid-style adapters.
type Turn int

const (
	TurnStraight Turn = iota
	TurnLeft
	TurnRight
)

func (t Turn) String() string {
	switch t {
	case TurnStraight:
		return "straight"
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	default:
		return fmt.Sprintf("turn(%d)", int(t))
	}
}

// Command is one frame of control: the front-wheel steering angle in
// radians (negative steers left) and the throttle intent.
type Command struct {
	Steer        float64
	Acceleration Acceleration
}
