package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/komsi-bridge/internal/capture"
	"github.com/shaunagostinho/komsi-bridge/internal/link"
	"github.com/shaunagostinho/komsi-bridge/internal/logging"
)

// Config holds all bridge configuration.
type Config struct {
	mu sync.RWMutex

	// Where snapshots come from
	Source SourceConfig `yaml:"source" json:"source"`

	// Receivers
	Serial SerialConfig `yaml:"serial" json:"serial"`
	MQTT   MQTTConfig   `yaml:"mqtt" json:"mqtt"`

	// Diff behaviour
	Bridge BridgeConfig `yaml:"bridge" json:"bridge"`

	// Logging and batch capture
	Logging logging.Config `yaml:"logging" json:"logging"`
	Capture capture.Config `yaml:"capture" json:"capture"`

	// Server
	Server ServerConfig `yaml:"server" json:"server"`

	path string // file path for save/load
}

type SourceConfig struct {
	Type   string `yaml:"type" json:"type"`      // "demo" or "push"
	PollHz int    `yaml:"poll_hz" json:"pollHz"` // snapshot rate
}

type SerialConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	link.SerialConfig `yaml:",inline"`
}

type MQTTConfig struct {
	Enabled         bool `yaml:"enabled" json:"enabled"`
	link.MQTTConfig `yaml:",inline"`
}

type BridgeConfig struct {
	ResyncSec  int  `yaml:"resync_sec" json:"resyncSec"`   // full batch interval, 0 disables
	LogChanges bool `yaml:"log_changes" json:"logChanges"` // per-field debug lines
	Dump       bool `yaml:"dump" json:"dump"`              // print every snapshot to stdout
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:   "demo",
			PollHz: 10,
		},
		Serial: SerialConfig{
			Enabled: false,
			SerialConfig: link.SerialConfig{
				PortPath: "/dev/ttyUSB0",
				BaudRate: 115200,
			},
		},
		MQTT: MQTTConfig{
			Enabled: false,
			MQTTConfig: link.MQTTConfig{
				Broker:   "tcp://localhost:1883",
				ClientID: "komsi-bridge",
				Topic:    "komsi/batch",
				QoS:      0,
			},
		},
		Bridge: BridgeConfig{
			ResyncSec:  30,
			LogChanges: true,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
		Capture: capture.Config{
			Enabled: false,
			Path:    "/var/log/komsi-bridge",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		path: "/etc/komsi-bridge/config.yaml",
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found. Messages are
// returned through log since the configured logger does not exist yet.
func LoadConfig(path string, log zerolog.Logger) *Config {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		log.Info().Str("path", path).Msg("no config file, using defaults")
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config parse error, using defaults")
		cfg = DefaultConfig()
		cfg.path = path
	} else {
		log.Info().Str("path", path).Msg("config loaded")
	}

	// Load .env file from the same directory as the config, or from CWD
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		loadEnvFile(ep, log)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string, log zerolog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Info().Str("path", path).Msg("loading .env")
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		// Real env takes precedence
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

func envBool(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: SOURCE_TYPE, POLL_HZ, SERIAL_ENABLED, SERIAL_PORT, SERIAL_BAUD,
// MQTT_ENABLED, MQTT_BROKER, MQTT_TOPIC, RESYNC_SEC, LISTEN_ADDR, LOG_LEVEL,
// LOG_FORMAT, CAPTURE_ENABLED, CAPTURE_PATH
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("POLL_HZ"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Source.PollHz = n
		}
	}
	if v := os.Getenv("SERIAL_ENABLED"); v != "" {
		c.Serial.Enabled = envBool(v)
	}
	if v := os.Getenv("SERIAL_PORT"); v != "" {
		c.Serial.PortPath = v
	}
	if v := os.Getenv("SERIAL_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Serial.BaudRate = n
		}
	}
	if v := os.Getenv("MQTT_ENABLED"); v != "" {
		c.MQTT.Enabled = envBool(v)
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_TOPIC"); v != "" {
		c.MQTT.Topic = v
	}
	if v := os.Getenv("RESYNC_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bridge.ResyncSec = n
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CAPTURE_ENABLED"); v != "" {
		c.Capture.Enabled = envBool(v)
	}
	if v := os.Getenv("CAPTURE_PATH"); v != "" {
		c.Capture.Path = v
	}
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c)
}

// BridgeSettings returns the bridge section under the read lock.
func (c *Config) BridgeSettings() BridgeConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Bridge
}

// CaptureSettings returns a copy of the capture section.
func (c *Config) CaptureSettings() capture.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Capture
}

// UpdateFromJSON applies a partial JSON config update by deep-merging
// incoming fields into the existing config. Fields not present in the
// incoming JSON are preserved.
func (c *Config) UpdateFromJSON(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	currentBytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal current config: %w", err)
	}
	var base map[string]interface{}
	if err := json.Unmarshal(currentBytes, &base); err != nil {
		return fmt.Errorf("unmarshal current config: %w", err)
	}

	var patch map[string]interface{}
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("unmarshal patch: %w", err)
	}

	deepMerge(base, patch)

	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	return json.Unmarshal(merged, c)
}

// deepMerge recursively merges src into dst. For nested maps, values are
// merged rather than replaced. For all other types, src overwrites dst.
func deepMerge(dst, src map[string]interface{}) {
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}
