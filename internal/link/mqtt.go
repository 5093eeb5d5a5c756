package link

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTConfig holds broker configuration for the MQTT sink.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id" json:"clientId"`
	Topic    string `yaml:"topic" json:"topic"`
	QoS      byte   `yaml:"qos" json:"qos"`
	Retained bool   `yaml:"retained" json:"retained"`
}

// mqttClient is the subset of mqtt.Client used by the sink.
type mqttClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each KOMSI batch as one message, for receivers that are
// not attached to the bridge host.
type MQTT struct {
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	log      zerolog.Logger
	client   mqttClient
}

// NewMQTT creates an MQTT sink. The broker connection is opened by Connect.
func NewMQTT(cfg MQTTConfig, log zerolog.Logger) *MQTT {
	if cfg.ClientID == "" {
		cfg.ClientID = "komsi-bridge"
	}
	if cfg.Topic == "" {
		cfg.Topic = "komsi/batch"
	}
	timeout := 5 * time.Second
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetWriteTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})
	return &MQTT{
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  timeout,
		log:      log,
		client:   mqtt.NewClient(opts),
	}
}

func (m *MQTT) Name() string { return "mqtt " + m.topic }

// Connect opens the broker connection.
func (m *MQTT) Connect() error {
	if err := m.wait(m.client.Connect(), "connect"); err != nil {
		return err
	}
	m.log.Info().Str("topic", m.topic).Msg("mqtt connected")
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

func (m *MQTT) IsConnected() bool { return m.client.IsConnected() }

func (m *MQTT) Write(batch []byte) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}
	return m.wait(m.client.Publish(m.topic, m.qos, m.retained, batch), "publish")
}

func (m *MQTT) wait(t mqtt.Token, op string) error {
	if !t.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt: %s timeout after %v", op, m.timeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("mqtt: %s: %w", op, err)
	}
	return nil
}
