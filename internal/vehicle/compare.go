package vehicle

import (
	"fmt"

	"github.com/shaunagostinho/komsi-bridge/internal/komsi"
)

// Logger receives one human-readable line per emitted field.
// Implementations shared between goroutines must synchronize themselves.
type Logger interface {
	Log(msg string)
}

// LoggerFunc adapts a plain function to Logger.
type LoggerFunc func(msg string)

func (f LoggerFunc) Log(msg string) { f(msg) }

// field binds a State attribute to its KOMSI command.
type field struct {
	name string
	kind komsi.CommandKind
	get  func(*State) uint32
	wide bool // uint32 attribute
}

// trackedFields is the canonical emission order. Receivers and tests rely on
// it; a new command must be added here and in the komsi registry together.
var trackedFields = [...]field{
	{"ignition", komsi.Ignition, func(s *State) uint32 { return uint32(s.Ignition) }, false},
	{"engine", komsi.Engine, func(s *State) uint32 { return uint32(s.Engine) }, false},
	{"doors", komsi.PassengerDoorsOpen, func(s *State) uint32 { return uint32(s.Doors) }, false},
	{"fixing_brake", komsi.FixingBrake, func(s *State) uint32 { return uint32(s.FixingBrake) }, false},
	{"indicator", komsi.Indicator, func(s *State) uint32 { return uint32(s.Indicator) }, false},
	{"lights_warning", komsi.LightsWarning, func(s *State) uint32 { return uint32(s.LightsWarning) }, false},
	{"lights_main", komsi.LightsMain, func(s *State) uint32 { return uint32(s.LightsMain) }, false},
	{"lights_stop_request", komsi.LightsStopRequest, func(s *State) uint32 { return uint32(s.LightsStopRequest) }, false},
	{"lights_stop_brake", komsi.LightsStopBrake, func(s *State) uint32 { return uint32(s.LightsStopBrake) }, false},
	{"lights_front_door", komsi.LightsFrontDoor, func(s *State) uint32 { return uint32(s.LightsFrontDoor) }, false},
	{"lights_second_door", komsi.LightsSecondDoor, func(s *State) uint32 { return uint32(s.LightsSecondDoor) }, false},
	{"lights_third_door", komsi.LightsThirdDoor, func(s *State) uint32 { return uint32(s.LightsThirdDoor) }, false},
	{"lights_high_beam", komsi.LightsHighBeam, func(s *State) uint32 { return uint32(s.LightsHighBeam) }, false},
	{"fuel", komsi.Fuel, func(s *State) uint32 { return s.Fuel }, true},
	{"speed", komsi.Speed, func(s *State) uint32 { return s.Speed }, true},
	{"maxspeed", komsi.MaxSpeed, func(s *State) uint32 { return s.MaxSpeed }, true},
	{"battery_light", komsi.BatteryLight, func(s *State) uint32 { return uint32(s.BatteryLight) }, false},
	{"door_enable", komsi.DoorEnable, func(s *State) uint32 { return uint32(s.DoorEnable) }, false},
	// lights_fourth_door and gear_selector have no command yet, see StateOnlyFields.
}

// TrackedFields returns the names of the encoded fields in emission order.
func TrackedFields() []string {
	names := make([]string, len(trackedFields))
	for i, f := range trackedFields {
		names[i] = f.name
	}
	return names
}

// Compare returns the KOMSI batch that moves a receiver from s to next.
//
// Every tracked field that differs, or every tracked field when force is
// set, is encoded with its value from next in canonical order. A terminator
// follows the last command. The result is empty when nothing was emitted.
//
// log may be nil. It is called inline before each field is encoded and never
// affects the returned bytes; a panic in log aborts the comparison.
func (s State) Compare(next State, force bool, log Logger) []byte {
	var buf []byte
	for i := range trackedFields {
		f := &trackedFields[i]
		old, cur := f.get(&s), f.get(&next)
		if old == cur && !force {
			continue
		}
		if log != nil {
			log.Log(fmt.Sprintf("%s: %d -> %d", f.name, old, cur))
		}
		if f.wide {
			buf = komsi.Append(buf, f.kind, cur)
		} else {
			buf = komsi.Append(buf, f.kind, uint8(cur))
		}
	}
	if len(buf) > 0 {
		buf = komsi.AppendTerminator(buf)
	}
	return buf
}

// Compare is the free-function form of State.Compare.
func Compare(before, after State, force bool, log Logger) []byte {
	return before.Compare(after, force, log)
}
