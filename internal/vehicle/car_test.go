package vehicle

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/control"
	"trackdrive/internal/simerr"
)

func TestNewCarComputesMaxSpeedEagerly(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)
	assert.InDelta(t, 8.0, car.MaxSpeed(), 1e-12)
	assert.InDelta(t, math.Pi/4, car.MaxSteerAngle(), 1e-12)
}

func TestNewCarRejectsBadSpec(t *testing.T) {
	spec := DefaultSpec()
	spec.Length = 0
	_, err := NewCar(spec)
	require.ErrorIs(t, err, simerr.ErrConfiguration)

	spec = DefaultSpec()
	spec.Width = math.NaN()
	_, err = NewCar(spec)
	require.ErrorIs(t, err, simerr.ErrConfiguration)

	spec = DefaultSpec()
	spec.Grip = 1.5
	_, err = NewCar(spec)
	require.ErrorIs(t, err, simerr.ErrConfiguration)
}

func TestPlaceResetsStateAndOutline(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)
	car.Apply(control.Command{Steer: 0.3, Acceleration: control.AccelerationForward})

	car.Place(r2.Vec{X: 100, Y: 50}, 0)
	assert.Equal(t, r2.Vec{}, car.Velocity())
	assert.Equal(t, 0.0, car.SteerAngle())

	want := []r2.Vec{
		{X: 120, Y: 40}, {X: 120, Y: 50}, {X: 120, Y: 60}, {X: 100, Y: 60},
		{X: 80, Y: 60}, {X: 80, Y: 50}, {X: 80, Y: 40}, {X: 100, Y: 40},
	}
	if diff := cmp.Diff(want, car.Outline(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("outline mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyForwardApproachesMaxSpeed(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)
	car.Place(r2.Vec{}, 0)

	for i := 0; i < 400; i++ {
		car.Apply(control.Command{Acceleration: control.AccelerationForward})
	}
	assert.InDelta(t, car.MaxSpeed(), car.Speed(), 1e-3)
	assert.Greater(t, car.Position().X, 0.0)
	assert.InDelta(t, 0.0, car.Position().Y, 1e-9)
}

func TestApplyReverseMovesBackward(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)
	car.Place(r2.Vec{}, 0)

	for i := 0; i < 10; i++ {
		car.Apply(control.Command{Acceleration: control.AccelerationReverse})
	}
	assert.Less(t, car.Position().X, 0.0)
}

func TestApplySteersLeftWithNegativeAngle(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)
	car.Place(r2.Vec{}, 0)

	for i := 0; i < 20; i++ {
		car.Apply(control.Command{Steer: -0.4, Acceleration: control.AccelerationForward})
	}
	assert.Less(t, car.Angle(), 0.0)
	assert.Less(t, car.Position().Y, 0.0)
	assert.InDelta(t, -0.4, car.SteerAngle(), 1e-12)
}

func TestApplyClampsSteerAndIgnoresNaN(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)

	car.Apply(control.Command{Steer: 3})
	assert.InDelta(t, math.Pi/4, car.SteerAngle(), 1e-12)

	car.Apply(control.Command{Steer: math.NaN()})
	assert.Equal(t, 0.0, car.SteerAngle())
}

func TestCoastingDecaysSpeed(t *testing.T) {
	car, err := NewCar(DefaultSpec())
	require.NoError(t, err)
	car.Place(r2.Vec{}, 0)
	for i := 0; i < 50; i++ {
		car.Apply(control.Command{Acceleration: control.AccelerationForward})
	}
	before := car.Speed()
	for i := 0; i < 50; i++ {
		car.Apply(control.Command{Acceleration: control.AccelerationNone})
	}
	assert.Less(t, car.Speed(), before)
}
