// Package capture records every emitted KOMSI batch to CSV files, for
// replaying receiver issues offline.
package capture

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shaunagostinho/komsi-bridge/internal/komsi"
	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

// Recorder writes timestamped batches with the snapshot that produced them,
// rotating files automatically.
type Recorder struct {
	mu      sync.Mutex
	dir     string
	enabled bool
	log     zerolog.Logger

	file   *os.File
	writer *csv.Writer
	rows   int
	now    func() time.Time
}

// Config holds capture configuration.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

const (
	maxRowsPerFile = 100_000 // ~2.7 hrs of changes at 10 Hz
)

var csvHeader = []string{
	"timestamp", "force", "commands", "batch_hex",
	"ignition", "engine", "doors", "speed", "max_speed", "fuel",
	"indicator", "fixing_brake", "lights_warning", "lights_main",
	"lights_front_door", "lights_second_door", "lights_third_door", "lights_fourth_door",
	"lights_stop_request", "lights_stop_brake", "lights_high_beam",
	"battery_light", "gear_selector", "door_enable",
}

// New creates a new Recorder.
func New(cfg Config, log zerolog.Logger) *Recorder {
	if cfg.Path == "" {
		cfg.Path = "/var/log/komsi-bridge"
	}
	return &Recorder{
		dir:     cfg.Path,
		enabled: cfg.Enabled,
		log:     log,
		now:     time.Now,
	}
}

// SetEnabled allows toggling capture at runtime.
func (r *Recorder) SetEnabled(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = on
	if !on && r.file != nil {
		r.closeFile()
	}
}

// IsEnabled returns whether capture is active.
func (r *Recorder) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Record writes one batch. Empty batches are skipped.
func (r *Recorder) Record(batch []byte, force bool, state vehicle.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled || len(batch) == 0 {
		return
	}

	now := r.now()
	if r.writer == nil || r.rows >= maxRowsPerFile {
		if err := r.rotateFile(now); err != nil {
			r.log.Error().Err(err).Msg("capture rotate failed")
			return
		}
	}

	if err := r.writer.Write(buildRow(now, batch, force, state)); err != nil {
		r.log.Error().Err(err).Msg("capture write failed")
		return
	}
	r.writer.Flush()
	r.rows++
}

// Close flushes and closes the current capture file.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeFile()
}

func (r *Recorder) rotateFile(now time.Time) error {
	r.closeFile()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", r.dir, err)
	}

	filename := fmt.Sprintf("komsi_%s.csv", now.Format("2006-01-02_150405.000"))
	path := filepath.Join(r.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	r.file = f
	r.writer = csv.NewWriter(f)
	r.rows = 0

	if err := r.writer.Write(csvHeader); err != nil {
		return err
	}
	r.writer.Flush()

	r.log.Info().Str("path", path).Msg("capture file opened")
	return nil
}

func (r *Recorder) closeFile() {
	if r.writer != nil {
		r.writer.Flush()
		r.writer = nil
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}

func buildRow(ts time.Time, batch []byte, force bool, s vehicle.State) []string {
	u8 := func(v uint8) string { return strconv.FormatUint(uint64(v), 10) }
	u32 := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

	return []string{
		ts.Format(time.RFC3339Nano),
		strconv.FormatBool(force),
		strconv.Itoa(komsi.Count(batch)),
		hex.EncodeToString(batch),
		u8(s.Ignition), u8(s.Engine), u8(s.Doors),
		u32(s.Speed), u32(s.MaxSpeed), u32(s.Fuel),
		u8(s.Indicator), u8(s.FixingBrake), u8(s.LightsWarning), u8(s.LightsMain),
		u8(s.LightsFrontDoor), u8(s.LightsSecondDoor), u8(s.LightsThirdDoor), u8(s.LightsFourthDoor),
		u8(s.LightsStopRequest), u8(s.LightsStopBrake), u8(s.LightsHighBeam),
		u8(s.BatteryLight), u8(s.GearSelector), u8(s.DoorEnable),
	}
}
