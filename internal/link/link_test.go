package link

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type fakePort struct {
	bytes.Buffer
	writeErr error
	closed   bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestSerial(port *fakePort, openErr error) (*Serial, *serial.Mode) {
	var gotMode serial.Mode
	s := NewSerial(SerialConfig{PortPath: "/dev/ttyKOMSI"}, zerolog.Nop())
	s.openDelay = 0
	s.open = func(path string, mode *serial.Mode) (io.WriteCloser, error) {
		if openErr != nil {
			return nil, openErr
		}
		gotMode = *mode
		return port, nil
	}
	return s, &gotMode
}

func TestSerialWriteBeforeConnect(t *testing.T) {
	s, _ := newTestSerial(&fakePort{}, nil)
	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.Write([]byte("A1\n")), ErrNotConnected)
}

func TestSerialConnectAndWrite(t *testing.T) {
	port := &fakePort{}
	s, mode := newTestSerial(port, nil)

	require.NoError(t, s.Connect())
	assert.True(t, s.IsConnected())
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)

	require.NoError(t, s.Write([]byte{65, 49, 10}))
	require.NoError(t, s.Write([]byte{121, 53, 48, 10}))
	assert.Equal(t, []byte{65, 49, 10, 121, 53, 48, 10}, port.Bytes())

	require.NoError(t, s.Close())
	assert.True(t, port.closed)
	assert.False(t, s.IsConnected())
	require.NoError(t, s.Close())
}

func TestSerialConnectError(t *testing.T) {
	s, _ := newTestSerial(nil, errors.New("no such device"))
	err := s.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyKOMSI")
	assert.False(t, s.IsConnected())
}

func TestSerialWriteFailureDisconnects(t *testing.T) {
	port := &fakePort{}
	s, _ := newTestSerial(port, nil)
	require.NoError(t, s.Connect())

	port.writeErr = errors.New("device unplugged")
	err := s.Write([]byte("A1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device unplugged")
	assert.True(t, port.closed)
	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.Write([]byte("A1\n")), ErrNotConnected)
}

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	connected  bool
	connectErr error
	pubToken   *fakeToken
	published  []published
}

func (c *fakeClient) Connect() mqtt.Token {
	if c.connectErr == nil {
		c.connected = true
	}
	return &fakeToken{err: c.connectErr}
}
func (c *fakeClient) Disconnect(uint)   { c.connected = false }
func (c *fakeClient) IsConnected() bool { return c.connected }
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	if c.pubToken != nil {
		return c.pubToken
	}
	return &fakeToken{}
}

func newTestMQTT(c *fakeClient) *MQTT {
	m := NewMQTT(MQTTConfig{Broker: "tcp://localhost:1883", QoS: 1}, zerolog.Nop())
	m.client = c
	return m
}

func TestMQTTDefaults(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://localhost:1883"}, zerolog.Nop())
	assert.Equal(t, "mqtt komsi/batch", m.Name())
	assert.False(t, m.IsConnected())
}

func TestMQTTPublish(t *testing.T) {
	c := &fakeClient{}
	m := newTestMQTT(c)

	assert.ErrorIs(t, m.Write([]byte("A1\n")), ErrNotConnected)

	require.NoError(t, m.Connect())
	require.NoError(t, m.Write([]byte{65, 49, 10}))
	require.Len(t, c.published, 1)
	assert.Equal(t, published{"komsi/batch", 1, false, []byte{65, 49, 10}}, c.published[0])

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
}

func TestMQTTErrors(t *testing.T) {
	c := &fakeClient{connectErr: errors.New("refused")}
	m := newTestMQTT(c)
	err := m.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	c.connectErr = nil
	require.NoError(t, m.Connect())
	c.pubToken = &fakeToken{timeout: true}
	err = m.Write([]byte("A1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestSinksImplementInterface(t *testing.T) {
	var _ Sink = &Serial{}
	var _ Sink = &MQTT{}
}
