// Package vehicle tracks simulator vehicle state and converts state changes
// into KOMSI command batches.
package vehicle

import (
	"fmt"
	"io"
	"strings"
)

// State is one snapshot of all tracked vehicle attributes.
// Field names follow the KOMSI command they feed.
type State struct {
	Ignition uint8 `json:"ignition" yaml:"ignition"` // 0 = off, 1 = on
	Engine   uint8 `json:"engine" yaml:"engine"`     // 0 = off, 1 = running
	Doors    uint8 `json:"doors" yaml:"doors"`       // passenger doors open

	Speed    uint32 `json:"speed" yaml:"speed"`
	MaxSpeed uint32 `json:"maxSpeed" yaml:"max_speed"`
	Fuel     uint32 `json:"fuel" yaml:"fuel"`

	Indicator   uint8 `json:"indicator" yaml:"indicator"`      // 0 = off, 1 = left, 2 = right, 3 = both
	FixingBrake uint8 `json:"fixingBrake" yaml:"fixing_brake"` // parking brake applied

	// Lights
	LightsWarning     uint8 `json:"lightsWarning" yaml:"lights_warning"`
	LightsMain        uint8 `json:"lightsMain" yaml:"lights_main"`
	LightsFrontDoor   uint8 `json:"lightsFrontDoor" yaml:"lights_front_door"`
	LightsSecondDoor  uint8 `json:"lightsSecondDoor" yaml:"lights_second_door"`
	LightsThirdDoor   uint8 `json:"lightsThirdDoor" yaml:"lights_third_door"`
	LightsFourthDoor  uint8 `json:"lightsFourthDoor" yaml:"lights_fourth_door"` // state-only
	LightsStopRequest uint8 `json:"lightsStopRequest" yaml:"lights_stop_request"`
	LightsStopBrake   uint8 `json:"lightsStopBrake" yaml:"lights_stop_brake"`
	LightsHighBeam    uint8 `json:"lightsHighBeam" yaml:"lights_high_beam"`

	BatteryLight uint8 `json:"batteryLight" yaml:"battery_light"` // charging warning
	GearSelector uint8 `json:"gearSelector" yaml:"gear_selector"` // state-only
	DoorEnable   uint8 `json:"doorEnable" yaml:"door_enable"`
}

// StateOnlyFields lists attributes that are kept in State but have no KOMSI
// command yet. Compare never emits them; wiring one in changes the wire format.
var StateOnlyFields = []string{"lights_fourth_door", "gear_selector"}

// New returns a snapshot with every field at zero.
func New() State {
	return State{}
}

// Print writes a single-line dump of every field to w.
func (s State) Print(w io.Writer) {
	fmt.Fprintln(w, s.String())
}

func (s State) String() string {
	var b strings.Builder
	for _, kv := range []struct {
		name  string
		value uint32
	}{
		{"ignition", uint32(s.Ignition)},
		{"engine", uint32(s.Engine)},
		{"indicator", uint32(s.Indicator)},
		{"fuel", s.Fuel},
		{"warn", uint32(s.LightsWarning)},
		{"lights", uint32(s.LightsMain)},
		{"high-beam", uint32(s.LightsHighBeam)},
		{"stop", uint32(s.LightsStopRequest)},
		{"fixing-brake", uint32(s.FixingBrake)},
		{"stop-brake", uint32(s.LightsStopBrake)},
		{"doors", uint32(s.Doors)},
		{"door1", uint32(s.LightsFrontDoor)},
		{"door2", uint32(s.LightsSecondDoor)},
		{"door3", uint32(s.LightsThirdDoor)},
		{"door4", uint32(s.LightsFourthDoor)},
		{"speed", s.Speed},
		{"max-speed", s.MaxSpeed},
		{"battery-light", uint32(s.BatteryLight)},
		{"door-enable", uint32(s.DoorEnable)},
		{"gear-selector", uint32(s.GearSelector)},
	} {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", kv.name, kv.value)
	}
	return b.String()
}
