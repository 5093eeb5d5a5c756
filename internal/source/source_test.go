package source

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

func newTestDemo(t *testing.T) *DemoProvider {
	t.Helper()
	d := NewDemoProvider()
	d.rng = rand.New(rand.NewSource(1))
	require.NoError(t, d.Connect())
	return d
}

func TestDemoStartup(t *testing.T) {
	d := newTestDemo(t)
	s := d.stateAt(1)
	assert.Equal(t, uint8(1), s.Ignition)
	assert.Equal(t, uint8(0), s.Engine)
	assert.Equal(t, uint8(1), s.BatteryLight)
	assert.Equal(t, uint32(100), s.Fuel)
}

func TestDemoCycleInvariants(t *testing.T) {
	d := newTestDemo(t)
	for i := 0; i < 3000; i++ {
		s, err := d.Read()
		require.NoError(t, err)

		assert.LessOrEqual(t, s.Speed, s.MaxSpeed)
		if s.Doors == 1 {
			assert.Zero(t, s.Speed, "doors open while moving at t=%.1f", d.t)
			assert.Equal(t, uint8(1), s.FixingBrake)
		}
		if s.Speed > 0 {
			assert.Equal(t, uint8(2), s.GearSelector)
		}
		assert.LessOrEqual(t, s.Indicator, uint8(3))
	}
}

func TestDemoPhases(t *testing.T) {
	d := newTestDemo(t)

	stop := d.stateAt(62)
	assert.Equal(t, uint8(1), stop.Doors)
	assert.Zero(t, stop.Speed)

	leaving := d.stateAt(66)
	assert.Equal(t, uint8(0), leaving.Doors)
	assert.Equal(t, uint8(1), leaving.Indicator)

	cruise := d.stateAt(95)
	assert.InDelta(t, 50, float64(cruise.Speed), 2)
	assert.Equal(t, uint8(0), cruise.LightsStopRequest)

	requested := d.stateAt(102)
	assert.Equal(t, uint8(1), requested.LightsStopRequest)

	arriving := d.stateAt(111)
	assert.Equal(t, uint8(2), arriving.Indicator)
	assert.Equal(t, uint8(1), arriving.LightsStopBrake)
}

func TestDemoProducesChanges(t *testing.T) {
	d := newTestDemo(t)
	prev, _ := d.Read()
	changed := 0
	for i := 0; i < 600; i++ {
		cur, _ := d.Read()
		if len(prev.Compare(cur, false, nil)) > 0 {
			changed++
		}
		prev = cur
	}
	assert.Greater(t, changed, 10)
}

func TestDemoReadRequiresConnect(t *testing.T) {
	d := NewDemoProvider()
	_, err := d.Read()
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, d.Connect())
	_, err = d.Read()
	require.NoError(t, err)

	require.NoError(t, d.Close())
	_, err = d.Read()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPushProvider(t *testing.T) {
	p := NewPushProvider()
	require.NoError(t, p.Connect())

	_, err := p.Read()
	assert.ErrorIs(t, err, ErrNoState)

	s := vehicle.New()
	s.Speed = 33
	p.Update(s)

	got, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, s, got)

	s.Speed = 34
	assert.Equal(t, uint32(33), got.Speed)
	require.NoError(t, p.Close())
}

func TestProvidersImplementInterface(t *testing.T) {
	var _ Provider = NewDemoProvider()
	var _ Provider = NewPushProvider()
}
