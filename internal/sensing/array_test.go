package sensing

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/geom"
	"trackdrive/internal/simerr"
)

type fakeBody struct {
	position r2.Vec
	angle    float64
	velocity r2.Vec
	length   float64
	width    float64
	maxSpeed float64
	maxSteer float64
	steer    float64
}

func (b fakeBody) Position() r2.Vec       { return b.position }
func (b fakeBody) Angle() float64         { return b.angle }
func (b fakeBody) Velocity() r2.Vec       { return b.velocity }
func (b fakeBody) Length() float64        { return b.length }
func (b fakeBody) Width() float64         { return b.width }
func (b fakeBody) MaxSpeed() float64      { return b.maxSpeed }
func (b fakeBody) MaxSteerAngle() float64 { return b.maxSteer }
func (b fakeBody) SteerAngle() float64    { return b.steer }

func newFakeBody() fakeBody {
	return fakeBody{length: 40, width: 20, maxSpeed: 8, maxSteer: math.Pi / 4}
}

type call struct {
	origin    r2.Vec
	direction float64
	maxRange  float64
}

type recordingSensor struct {
	calls []call
}

func (*recordingSensor) Name() string { return "recording" }

func (s *recordingSensor) Measure(origin, direction r2.Vec, _ BoundaryProbe, maxRange float64) float64 {
	s.calls = append(s.calls, call{origin: origin, direction: geom.Angle(direction), maxRange: maxRange})
	return 0.5
}

var openField = BoundaryProbeFunc(func(r2.Vec) bool { return true })

func TestObserveRayLayout(t *testing.T) {
	sensor := &recordingSensor{}
	array := NewArray(sensor)

	_, err := array.Observe(newFakeBody(), openField)
	require.NoError(t, err)

	front := r2.Vec{X: 20}
	frontLeft := r2.Vec{X: 20, Y: -10}
	frontRight := r2.Vec{X: 20, Y: 10}
	backLeft := r2.Vec{X: -20, Y: -10}
	backRight := r2.Vec{X: -20, Y: 10}
	back := r2.Vec{X: -20}

	want := []call{
		{front, 0, 120},
		{frontLeft, -math.Pi / 6, 120},
		{frontRight, math.Pi / 6, 120},
		{frontLeft, -math.Pi / 3, 120},
		{frontRight, math.Pi / 3, 120},
		{frontLeft, -math.Pi / 2, 120},
		{frontRight, math.Pi / 2, 120},
		{backLeft, -3 * math.Pi / 4, 120},
		{backRight, 3 * math.Pi / 4, 120},
		{back, math.Pi, 120},
	}
	if diff := cmp.Diff(want, sensor.calls, cmp.AllowUnexported(call{}), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("ray layout mismatch (-want +got):\n%s", diff)
	}
}

func TestObserveDerivedScalars(t *testing.T) {
	body := newFakeBody()
	body.velocity = r2.Vec{X: 0, Y: 4}
	body.steer = -math.Pi / 8

	obs, err := NewArray(BinarySearchSensor{}).Observe(body, openField)
	require.NoError(t, err)

	for i := 0; i < RayCount; i++ {
		assert.Equal(t, 1.0, obs[i], "ray %d", i)
	}
	assert.InDelta(t, 0.5, obs[Speed], 1e-12)
	assert.InDelta(t, -0.5, obs[Drift], 1e-12)
	assert.InDelta(t, -0.5, obs[Steer], 1e-12)
}

func TestObserveDriftZeroWhenStationary(t *testing.T) {
	body := newFakeBody()
	body.angle = 2.5
	obs, err := NewArray(nil).Observe(body, openField)
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs[Drift])
	assert.Equal(t, 0.0, obs[Speed])
}

func TestObserveDriftStaysNormalized(t *testing.T) {
	body := newFakeBody()
	body.angle = 3.0
	body.velocity = geom.UnitFromAngle(-3.0)
	obs, err := NewArray(nil).Observe(body, openField)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, obs[Drift], -1.0)
	assert.LessOrEqual(t, obs[Drift], 1.0)
	assert.InDelta(t, geom.WrapAngle(6.0)/math.Pi, obs[Drift], 1e-12)
}

func TestObserveToleratesOverspeed(t *testing.T) {
	body := newFakeBody()
	body.velocity = r2.Vec{X: 16}
	obs, err := NewArray(nil).Observe(body, openField)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, obs[Speed], 1e-12)
}

func TestObserveCorridorClearances(t *testing.T) {
	// drivable strip |y| < 30, unbounded along x
	corridor := BoundaryProbeFunc(func(p r2.Vec) bool { return math.Abs(p.Y) < 30 })
	obs, err := NewArray(BinarySearchSensor{}).Observe(newFakeBody(), corridor)
	require.NoError(t, err)

	assert.Equal(t, 1.0, obs[Front])
	assert.Equal(t, 1.0, obs[Back])
	assert.InDelta(t, 20.0/120.0, obs[Left90], StepSize/120.0)
	assert.InDelta(t, 20.0/120.0, obs[Right90], StepSize/120.0)
	assert.InDelta(t, obs[Left90], obs[Right90], 1e-12)
	assert.Less(t, obs[Left90], obs[FrontLeft60])
}

func TestObserveRejectsBadBody(t *testing.T) {
	body := newFakeBody()
	body.length = 0
	_, err := NewArray(nil).Observe(body, openField)
	require.ErrorIs(t, err, simerr.ErrConfiguration)

	body = newFakeBody()
	body.maxSpeed = 0
	_, err = NewArray(nil).Observe(body, openField)
	require.ErrorIs(t, err, simerr.ErrConfiguration)

	_, err = NewArray(nil).Observe(newFakeBody(), nil)
	require.ErrorIs(t, err, simerr.ErrConfiguration)
}

func TestObservationValuesIsCopy(t *testing.T) {
	var obs Observation
	obs[Front] = 0.25
	values := obs.Values()
	require.Len(t, values, ObservationSize)
	values[Front] = 0.75
	assert.Equal(t, 0.25, obs[Front])
}
