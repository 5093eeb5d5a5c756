package komsi

import "fmt"

// CommandKind identifies one KOMSI command. Its numeric value is the code
// byte written on the wire.
//
// Status-style commands use 'A'..'Z' (65-90) and measurement-style commands
// use 's'..'z' (115-122). Neither range overlaps the ASCII digits or the
// line-feed terminator, which is what lets a receiver split the stream
// without separators.
type CommandKind uint8

const (
	// EndOfLine terminates a batch of commands ("\n").
	EndOfLine CommandKind = 10

	Ignition           CommandKind = 65 // 0 = off, 1 = on
	Engine             CommandKind = 66 // 0 = off, 1 = running
	PassengerDoorsOpen CommandKind = 67
	Indicator          CommandKind = 68 // 0 = off, 1 = left, 2 = right, 3 = both
	FixingBrake        CommandKind = 69 // parking brake
	LightsWarning      CommandKind = 70
	LightsMain         CommandKind = 71
	LightsFrontDoor    CommandKind = 72
	LightsSecondDoor   CommandKind = 73
	LightsThirdDoor    CommandKind = 74
	LightsStopRequest  CommandKind = 75
	LightsStopBrake    CommandKind = 76
	LightsHighBeam     CommandKind = 77
	BatteryLight       CommandKind = 78
	SimulatorType      CommandKind = 79
	DoorEnable         CommandKind = 80

	// Reserved for custom receivers.
	A17 CommandKind = 81
	A18 CommandKind = 82
	A19 CommandKind = 83
	A20 CommandKind = 84
	A21 CommandKind = 85
	A22 CommandKind = 86
	A23 CommandKind = 87
	A24 CommandKind = 88
	A25 CommandKind = 89
	A26 CommandKind = 90

	MaxSpeed    CommandKind = 115
	RPM         CommandKind = 116
	Pressure    CommandKind = 117
	Temperature CommandKind = 118
	Oil         CommandKind = 119
	Fuel        CommandKind = 120
	Speed       CommandKind = 121
	Water       CommandKind = 122
)

var kindNames = map[CommandKind]string{
	EndOfLine:          "eol",
	Ignition:           "ignition",
	Engine:             "engine",
	PassengerDoorsOpen: "passenger-doors-open",
	Indicator:          "indicator",
	FixingBrake:        "fixing-brake",
	LightsWarning:      "lights-warning",
	LightsMain:         "lights-main",
	LightsFrontDoor:    "lights-front-door",
	LightsSecondDoor:   "lights-second-door",
	LightsThirdDoor:    "lights-third-door",
	LightsStopRequest:  "lights-stop-request",
	LightsStopBrake:    "lights-stop-brake",
	LightsHighBeam:     "lights-high-beam",
	BatteryLight:       "battery-light",
	SimulatorType:      "simulator-type",
	DoorEnable:         "door-enable",
	A17:                "a17",
	A18:                "a18",
	A19:                "a19",
	A20:                "a20",
	A21:                "a21",
	A22:                "a22",
	A23:                "a23",
	A24:                "a24",
	A25:                "a25",
	A26:                "a26",
	MaxSpeed:           "max-speed",
	RPM:                "rpm",
	Pressure:           "pressure",
	Temperature:        "temperature",
	Oil:                "oil",
	Fuel:               "fuel",
	Speed:              "speed",
	Water:              "water",
}

// Kinds returns every registered command kind in ascending code order.
func Kinds() []CommandKind {
	kinds := make([]CommandKind, 0, len(kindNames))
	kinds = append(kinds, EndOfLine)
	for k := Ignition; k <= A26; k++ {
		kinds = append(kinds, k)
	}
	for k := MaxSpeed; k <= Water; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Byte returns the wire code.
func (k CommandKind) Byte() byte { return byte(k) }

// IsStatus reports whether k is in the status range (65-90).
func (k CommandKind) IsStatus() bool { return k >= Ignition && k <= A26 }

// IsMeasurement reports whether k is in the measurement range (115-122).
func (k CommandKind) IsMeasurement() bool { return k >= MaxSpeed && k <= Water }

func (k CommandKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CommandKind(%d)", uint8(k))
}
