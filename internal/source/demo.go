package source

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

const (
	demoCycle    = 60.0 // seconds between two bus stops
	demoMaxSpeed = 80   // km/h
	demoCruise   = 50.0 // km/h
	demoStartup  = 2.0  // seconds before the engine runs
)

// DemoProvider simulates a city bus driving from stop to stop, for
// development without a running simulator.
type DemoProvider struct {
	mu      sync.Mutex
	running bool
	t       float64 // virtual time accumulator
	step    float64 // virtual seconds per Read
	rng     *rand.Rand
}

func NewDemoProvider() *DemoProvider {
	return &DemoProvider{
		step: 0.1,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *DemoProvider) Name() string { return "Demo (Simulated)" }

func (d *DemoProvider) Connect() error {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
	return nil
}

func (d *DemoProvider) Close() error {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

func (d *DemoProvider) Read() (vehicle.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return vehicle.State{}, ErrClosed
	}
	d.t += d.step
	return d.stateAt(d.t), nil
}

// stateAt derives the bus state at virtual time t. One cycle is:
//
//	 0-5s  stopped, doors open
//	 5-8s  doors closed, indicating left
//	 8-30s accelerating
//	30-45s cruising, stop requested at 40s
//	45-55s braking, indicating right from 50s
//	55-60s stopped at the next stop
func (d *DemoProvider) stateAt(t float64) vehicle.State {
	s := vehicle.New()
	s.Ignition = 1
	s.MaxSpeed = demoMaxSpeed
	s.LightsMain = 1
	s.DoorEnable = 1

	fuel := 100 - t/120
	if fuel < 0 {
		fuel = 0
	}
	s.Fuel = uint32(math.Round(fuel))

	if t < demoStartup {
		s.BatteryLight = 1
		s.FixingBrake = 1
		return s
	}
	s.Engine = 1

	p := math.Mod(t, demoCycle)
	var speed float64
	switch {
	case p < 5:
		s.Doors = 1
		s.LightsFrontDoor = 1
		s.LightsSecondDoor = 1
		s.LightsThirdDoor = 1
		s.LightsFourthDoor = 1
		s.FixingBrake = 1
		s.LightsStopBrake = 1
	case p < 8:
		s.Indicator = 1
		s.LightsStopBrake = 1
	case p < 30:
		speed = demoCruise * math.Sin((p-8)/22*math.Pi/2)
	case p < 45:
		speed = demoCruise + d.rng.Float64()*4 - 2
		if p >= 40 {
			s.LightsStopRequest = 1
		}
	case p < 55:
		speed = demoCruise * (55 - p) / 10
		s.LightsStopRequest = 1
		s.LightsStopBrake = 1
		if p >= 50 {
			s.Indicator = 2
		}
	default:
		s.LightsStopRequest = 1
		s.LightsStopBrake = 1
		s.FixingBrake = 1
	}

	if speed < 0 {
		speed = 0
	}
	s.Speed = uint32(math.Round(speed))
	if s.Speed > 0 {
		s.GearSelector = 2 // drive
	}
	return s
}
