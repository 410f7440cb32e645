package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	// Broker is host:port or a full URL (tcp://, ssl://, ws://).
	Broker string

	ClientID string
	Username string
	Password string

	// TopicPrefix is prepended to every topic, e.g. "ytlive/".
	TopicPrefix string

	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// MQTTPublisher publishes bus messages to an MQTT broker.
type MQTTPublisher struct {
	cfg    MQTTConfig
	client mqtt.Client
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	published map[string]uint64
	errors    uint64
}

// NewMQTTPublisher creates an unconnected publisher.
func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if cfg.ClientID == "" {
		cfg.ClientID = "ytlive-" + uuid.NewString()[:8]
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTPublisher{
		cfg:       cfg,
		logger:    logger.With("component", "mqtt"),
		published: make(map[string]uint64),
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect establishes the broker connection. Reconnects are automatic afterwards.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.cfg.Broker))
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("mqtt connection established", "broker", p.cfg.Broker, "client_id", p.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost, will auto-reconnect", "broker", p.cfg.Broker, "error", err)
	}

	p.client = mqtt.NewClient(opts)
	p.logger.Info("connecting to mqtt broker", "broker", p.cfg.Broker)

	token := p.client.Connect()
	timeout := p.cfg.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.setConnected(true)
	return nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.isConnected() {
		p.countError()
		return fmt.Errorf("mqtt not connected")
	}
	full := p.cfg.TopicPrefix + topic
	token := p.client.Publish(full, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		p.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("publish failed: %w", err)
	}
	p.mu.Lock()
	p.published[full]++
	p.mu.Unlock()
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Info("mqtt disconnected")
	}
	p.setConnected(false)
	return nil
}

// Stats contains publisher statistics.
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

func (p *MQTTPublisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	published := make(map[string]uint64, len(p.published))
	for k, v := range p.published {
		published[k] = v
	}
	return Stats{Connected: p.connected, Published: published, Errors: p.errors}
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
