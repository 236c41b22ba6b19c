package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/yale-alarm/internal/config"
	"github.com/oshokin/yale-alarm/internal/domain/alarm"
	"github.com/oshokin/yale-alarm/internal/logger"
)

const (
	// defaultConnectTimeout is the maximum time to wait for the initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for a publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time in milliseconds to let pending work finish.
	defaultDisconnectQuiesce = 250

	// defaultKeepAlive is the keepalive interval of the connection.
	defaultKeepAlive = 60 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"
)

var (
	// errConnectTimeout is returned when the broker does not answer in time.
	errConnectTimeout = errors.New("mqtt connect timed out")
	// errPublishTimeout is returned when a publish is not acknowledged in time.
	errPublishTimeout = errors.New("mqtt publish timed out")
)

// mqttClient is the part of the paho client used here.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes snapshots as retained JSON messages.
type MQTT struct {
	client mqttClient
	topic  string
	qos    byte
}

// NewMQTT connects to the configured broker. The broker is told to publish
// "offline" on <topic>/status should the connection drop.
func NewMQTT(ctx context.Context, cfg config.MQTT) (*MQTT, error) {
	client := pahomqtt.NewClient(buildClientOptions(cfg))

	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w after %v", errConnectTimeout, defaultConnectTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	p := &MQTT{client: client, topic: cfg.Topic, qos: cfg.QoS}

	if err := p.publish(ctx, statusTopic(cfg.Topic), []byte(statusOnline)); err != nil {
		client.Disconnect(defaultDisconnectQuiesce)

		return nil, err
	}

	logger.InfoKV(ctx, "Connected to MQTT broker", "broker", cfg.Broker, "topic", cfg.Topic)

	return p, nil
}

// buildClientOptions creates paho options from the settings.
func buildClientOptions(cfg config.MQTT) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(statusTopic(cfg.Topic), statusOffline, cfg.QoS, true)

	return opts
}

// Publish implements Publisher.
func (p *MQTT) Publish(ctx context.Context, snapshot *alarm.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := p.publish(ctx, stateTopic(p.topic), payload); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Published alarm state", "topic", stateTopic(p.topic), "state", snapshot.State.String())

	return nil
}

// Close announces a graceful shutdown and disconnects.
func (p *MQTT) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	err := p.publish(ctx, statusTopic(p.topic), []byte(statusOffline))
	p.client.Disconnect(defaultDisconnectQuiesce)

	return err
}

// publish sends a retained message and waits for the acknowledgment.
func (p *MQTT) publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, true, payload)

	timer := time.NewTimer(defaultPublishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%w: %s", errPublishTimeout, topic)
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}

	return nil
}

func stateTopic(prefix string) string {
	return prefix + "/state"
}

func statusTopic(prefix string) string {
	return prefix + "/status"
}
