package link

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// SerialConfig holds connection configuration for a serial receiver.
type SerialConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
}

// Serial writes KOMSI batches to a serial port, typically a microcontroller
// driving a physical dashboard.
type Serial struct {
	portPath  string
	baudRate  int
	log       zerolog.Logger
	mu        sync.Mutex
	port      io.WriteCloser
	connected bool

	openDelay time.Duration
	open      func(path string, mode *serial.Mode) (io.WriteCloser, error)
}

// NewSerial creates a serial sink. The port is opened by Connect.
func NewSerial(cfg SerialConfig, log zerolog.Logger) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	return &Serial{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
		log:      log,
		// Most Arduino boards reset when the port opens.
		openDelay: 2 * time.Second,
		open:      openSerial,
	}
}

func openSerial(path string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(path, mode)
}

func (s *Serial) Name() string { return "serial " + s.portPath }

// Connect opens the port with 8N1 framing.
func (s *Serial) Connect() error {
	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.open(s.portPath, mode)
	if err != nil {
		return fmt.Errorf("serial: failed to open %s: %w", s.portPath, err)
	}

	if s.openDelay > 0 {
		time.Sleep(s.openDelay)
	}

	s.mu.Lock()
	if s.port != nil {
		s.port.Close()
	}
	s.port = port
	s.connected = true
	s.mu.Unlock()

	s.log.Info().Str("port", s.portPath).Int("baud", s.baudRate).Msg("serial port opened")
	return nil
}

// Close shuts the port. It is safe to call on a closed sink.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		return err
	}
	return nil
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Write sends one batch. On failure the port is closed so the supervisor
// reopens it.
func (s *Serial) Write(batch []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.port == nil {
		return ErrNotConnected
	}
	n, err := s.port.Write(batch)
	if err == nil && n < len(batch) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.log.Warn().Err(err).Str("port", s.portPath).Msg("serial write failed, closing port")
		s.port.Close()
		s.port = nil
		s.connected = false
		return fmt.Errorf("serial: write %s: %w", s.portPath, err)
	}
	return nil
}
