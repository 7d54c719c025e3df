package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/icodeforyou/spotprice-go/types"
)

const publishTimeout = 10 * time.Second

type MqttOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

type currentPrice struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// MqttPublisher publishes retained <prefix>/current and <prefix>/feed messages.
type MqttPublisher struct {
	logger *slog.Logger
	client mqttClient
	prefix string
	close  func()
}

func NewMqttPublisher(logger *slog.Logger, o MqttOptions) (*MqttPublisher, error) {
	if o.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required when enabled")
	}
	logger = logger.With("module", "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	if o.ClientID == "" {
		o.ClientID = "spotprice"
	}
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(publishTimeout)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("mqtt connected", slog.String("broker", o.Broker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", slog.Any("error", err))
	}

	mqtt.CRITICAL = newMqttLogger(logger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(logger, slog.LevelError)
	mqtt.WARN = newMqttLogger(logger, slog.LevelWarn)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("connecting to mqtt broker %s: timeout", o.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", o.Broker, err)
	}

	p := newMqttPublisher(logger, client, o.TopicPrefix)
	p.close = func() { client.Disconnect(250) }
	return p, nil
}

func newMqttPublisher(logger *slog.Logger, client mqttClient, prefix string) *MqttPublisher {
	if prefix == "" {
		prefix = "spotprice"
	}
	return &MqttPublisher{logger: logger, client: client, prefix: prefix}
}

func (p *MqttPublisher) Name() string {
	return "mqtt"
}

func (p *MqttPublisher) Publish(ctx context.Context, entries []types.FeedEntry, now time.Time) error {
	feed, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding feed: %w", err)
	}
	if err := p.publish(ctx, p.prefix+"/feed", feed); err != nil {
		return err
	}

	current, ok := CurrentEntry(entries, now)
	if !ok {
		p.logger.Warn("no price for the current hour")
		return nil
	}
	payload, err := json.Marshal(currentPrice{Time: current.Time, Price: current.Price})
	if err != nil {
		return fmt.Errorf("encoding current price: %w", err)
	}
	return p.publish(ctx, p.prefix+"/current", payload)
}

func (p *MqttPublisher) publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing %s: %w", topic, ctx.Err())
	case <-time.After(publishTimeout):
		return fmt.Errorf("publishing %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

func (p *MqttPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
