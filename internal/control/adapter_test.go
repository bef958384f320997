package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdrive/internal/simerr"
)

func TestArgmaxSteerAdapterDecide(t *testing.T) {
	adapter := ArgmaxSteerAdapter{MaxSteer: math.Pi / 4}

	cmd, err := adapter.Decide([]float64{0.1, 0.9, 0.3, 0.5})
	require.NoError(t, err)
	assert.Equal(t, AccelerationForward, cmd.Acceleration)
	assert.InDelta(t, 0.0, cmd.Steer, 1e-12)

	cmd, err = adapter.Decide([]float64{0.1, 0.2, 0.3, 1.0})
	require.NoError(t, err)
	assert.Equal(t, AccelerationReverse, cmd.Acceleration)
	assert.InDelta(t, math.Pi/4, cmd.Steer, 1e-12)

	cmd, err = adapter.Decide([]float64{0.7, 0.2, 0.3, 0.25})
	require.NoError(t, err)
	assert.Equal(t, AccelerationNone, cmd.Acceleration)
	assert.InDelta(t, -math.Pi/8, cmd.Steer, 1e-12)
}

func TestArgmaxSteerAdapterTiesPreferLowestIndex(t *testing.T) {
	adapter := ArgmaxSteerAdapter{MaxSteer: math.Pi / 4}

	cmd, err := adapter.Decide([]float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, AccelerationNone, cmd.Acceleration)

	cmd, err = adapter.Decide([]float64{0.1, 0.8, 0.8, 0.5})
	require.NoError(t, err)
	assert.Equal(t, AccelerationForward, cmd.Acceleration)
}

func TestArgmaxSteerAdapterClampsToVehicleLimit(t *testing.T) {
	adapter := ArgmaxSteerAdapter{MaxSteer: 0.3}

	cmd, err := adapter.Decide([]float64{0, 1, 0, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, cmd.Steer, 1e-12)

	cmd, err = adapter.Decide([]float64{0, 1, 0, -5})
	require.NoError(t, err)
	assert.InDelta(t, -0.3, cmd.Steer, 1e-12)
}

func TestArgmaxSteerAdapterTotalOverNonFiniteScores(t *testing.T) {
	adapter := ArgmaxSteerAdapter{MaxSteer: math.Pi / 4}
	inputs := [][]float64{
		{math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		{math.Inf(1), 0, math.Inf(1), math.Inf(-1)},
		{math.NaN(), -1, -2, math.Inf(1)},
		{-1e300, -1e300, 1e300, 0.5},
	}
	for _, raw := range inputs {
		cmd, err := adapter.Decide(raw)
		require.NoError(t, err)
		assert.True(t, cmd.Acceleration.Valid(), "raw=%v", raw)
		assert.LessOrEqual(t, math.Abs(cmd.Steer), math.Pi/4)
		assert.False(t, math.IsNaN(cmd.Steer))
	}
}

func TestArgmaxSteerAdapterRejectsShortOutput(t *testing.T) {
	_, err := ArgmaxSteerAdapter{MaxSteer: 0.5}.Decide([]float64{1, 2, 3})
	require.ErrorIs(t, err, simerr.ErrConfiguration)
}

func TestCombinedGridAdapterDecide(t *testing.T) {
	adapter := CombinedGridAdapter{MaxSteer: math.Pi / 4}
	cases := []struct {
		idx   int
		turn  Turn
		accel Acceleration
		steer float64
	}{
		{0, TurnStraight, AccelerationForward, 0},
		{1, TurnStraight, AccelerationReverse, 0},
		{2, TurnStraight, AccelerationNone, 0},
		{3, TurnLeft, AccelerationForward, -math.Pi / 4},
		{5, TurnLeft, AccelerationNone, -math.Pi / 4},
		{7, TurnRight, AccelerationReverse, math.Pi / 4},
		{8, TurnRight, AccelerationNone, math.Pi / 4},
	}
	for _, tc := range cases {
		raw := make([]float64, CombinedGridOutputs)
		raw[tc.idx] = 1
		cmd, err := adapter.Decide(raw)
		require.NoError(t, err)
		assert.Equal(t, tc.accel, cmd.Acceleration, "idx=%d", tc.idx)
		assert.InDelta(t, tc.steer, cmd.Steer, 1e-12, "idx=%d", tc.idx)

		turn, accel := GridCell(tc.idx)
		assert.Equal(t, tc.turn, turn)
		assert.Equal(t, tc.accel, accel)
	}
}

func TestCombinedGridAdapterTotality(t *testing.T) {
	adapter := CombinedGridAdapter{MaxSteer: math.Pi / 4}

	cmd, err := adapter.Decide(make([]float64, CombinedGridOutputs))
	require.NoError(t, err)
	assert.Equal(t, AccelerationForward, cmd.Acceleration)
	assert.Equal(t, 0.0, cmd.Steer)

	nan := make([]float64, CombinedGridOutputs)
	for i := range nan {
		nan[i] = math.NaN()
	}
	cmd, err = adapter.Decide(nan)
	require.NoError(t, err)
	assert.True(t, cmd.Acceleration.Valid())

	_, err = adapter.Decide([]float64{1, 2, 3, 4})
	require.ErrorIs(t, err, simerr.ErrConfiguration)
}

func TestDecideIsDeterministic(t *testing.T) {
	raw := []float64{0.3, 0.31, 0.29, 0.77, 0.1, 0.2, 0.9, 0.4, 0.4}
	for _, adapter := range []Adapter{
		ArgmaxSteerAdapter{MaxSteer: 0.6},
		CombinedGridAdapter{MaxSteer: 0.6},
	} {
		first, err := adapter.Decide(raw)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := adapter.Decide(raw)
			require.NoError(t, err)
			assert.Equal(t, first, again, adapter.Name())
		}
	}
}

func TestNewAdapter(t *testing.T) {
	adapter, err := NewAdapter("", 1.2)
	require.NoError(t, err)
	assert.Equal(t, ArgmaxSteerName, adapter.Name())
	assert.Equal(t, ArgmaxSteerAdapter{MaxSteer: MaxSteer}, adapter)

	adapter, err = NewAdapter(" Combined_Grid ", 0.5)
	require.NoError(t, err)
	assert.Equal(t, CombinedGridOutputs, adapter.Outputs())

	_, err = NewAdapter("fuzzy", 0.5)
	require.ErrorIs(t, err, simerr.ErrConfiguration)

	_, err = NewAdapter(ArgmaxSteerName, 0)
	require.ErrorIs(t, err, simerr.ErrConfiguration)
}

func TestAccelerationString(t *testing.T) {
	assert.Equal(t, "forward", AccelerationForward.String())
	assert.Equal(t, "acceleration(7)", Acceleration(7).String())
	assert.False(t, Acceleration(7).Valid())
	assert.Equal(t, "left", TurnLeft.String())
}
