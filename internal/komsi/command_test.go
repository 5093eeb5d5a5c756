package komsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		kind  CommandKind
		value uint32
		want  []byte
	}{
		{"speed 100", Speed, 100, []byte{121, '1', '0', '0'}},
		{"zero", Fuel, 0, []byte{120, '0'}},
		{"max uint32", MaxSpeed, 4294967295, append([]byte{115}, "4294967295"...)},
		{"no leading zeros", Speed, 7, []byte{121, '7'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.kind, tt.value))
		})
	}
}

func TestBuildU8(t *testing.T) {
	assert.Equal(t, []byte{65, '1'}, BuildU8(Ignition, 1))
	assert.Equal(t, []byte{68, '0'}, BuildU8(Indicator, 0))
	assert.Equal(t, []byte{80, '2', '5', '5'}, BuildU8(DoorEnable, 255))
}

func TestBuildSameForBothWidths(t *testing.T) {
	for v := 0; v <= 255; v++ {
		assert.Equal(t, Build(LightsMain, uint32(v)), BuildU8(LightsMain, uint8(v)), "value %d", v)
	}
}

func TestAppendExtendsBuffer(t *testing.T) {
	buf := BuildU8(Ignition, 1)
	buf = Append(buf, Speed, uint32(50))
	buf = AppendTerminator(buf)
	assert.Equal(t, []byte{65, 49, 121, 53, 48, 10}, buf)
}

func TestTerminator(t *testing.T) {
	assert.Equal(t, []byte{10}, Terminator())
}

func TestCodeValues(t *testing.T) {
	assert.Equal(t, byte(10), EndOfLine.Byte())
	assert.Equal(t, byte(65), Ignition.Byte())
	assert.Equal(t, byte(78), BatteryLight.Byte())
	assert.Equal(t, byte(80), DoorEnable.Byte())
	assert.Equal(t, byte(115), MaxSpeed.Byte())
	assert.Equal(t, byte(120), Fuel.Byte())
	assert.Equal(t, byte(121), Speed.Byte())
	assert.Equal(t, byte(122), Water.Byte())
}

func TestCodesAreSelfFraming(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 35)

	seen := make(map[byte]bool)
	for _, k := range kinds {
		b := k.Byte()
		assert.False(t, b >= '0' && b <= '9', "%s collides with a digit", k)
		assert.False(t, seen[b], "duplicate code %d", b)
		seen[b] = true

		if k == EndOfLine {
			assert.False(t, k.IsStatus() || k.IsMeasurement())
			continue
		}
		assert.True(t, k.IsStatus() != k.IsMeasurement(), "%s must be in exactly one range", k)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "speed", Speed.String())
	assert.Equal(t, "passenger-doors-open", PassengerDoorsOpen.String())
	assert.Equal(t, "CommandKind(99)", CommandKind(99).String())
}

func TestCount(t *testing.T) {
	batch := Append(nil, Ignition, uint8(1))
	batch = Append(batch, Speed, uint32(50))
	batch = AppendTerminator(batch)

	assert.Equal(t, 2, Count(batch))
	assert.Equal(t, 1, Count(Build(Fuel, 100)))
	assert.Zero(t, Count(nil))
	assert.Zero(t, Count(Terminator()))
}
