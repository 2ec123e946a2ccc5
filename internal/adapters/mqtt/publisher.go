// Package mqtt publishes lookup reports to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/huematch/internal/domain/types"
	"github.com/okian/huematch/pkg/logger"
)

const (
	sinkName       = "mqtt"
	defaultTimeout = 2 * time.Second
	quiesceMillis  = 250
)

// Client is the part of the paho client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
	Disconnect(quiesce uint)
}

// Publisher writes each report as a JSON document to one topic.
type Publisher struct {
	client   Client
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	logger   logger.Logger
}

// New wraps an already connected client.
func New(client Client, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		topic:   topic,
		qos:     1,
		timeout: defaultTimeout,
		logger:  logger.Get().Named("mqtt"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial connects to broker and returns a publisher on topic.
func Dial(ctx context.Context, broker, clientID, topic string, opts ...Option) (*Publisher, error) {
	co := MQTT.NewClientOptions()
	co.AddBroker(broker)
	co.SetClientID(clientID)
	co.SetCleanSession(true)
	co.SetAutoReconnect(true)

	client := MQTT.NewClient(co)
	p := New(client, topic, opts...)

	token := client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("%w: %s: no answer within %s", ErrConnect, broker, p.timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, broker, err)
	}
	p.logger.Info(ctx, "connected to broker",
		logger.String("broker", broker),
		logger.String("topic", topic),
	)
	return p, nil
}

// Name identifies the sink in metrics.
func (p *Publisher) Name() string { return sinkName }

// Publish sends one report and waits for the acknowledgement.
func (p *Publisher) Publish(ctx context.Context, r types.MatchReport) error { //nolint:gocritic // hugeParam: matches worker.Publisher
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}

	wait := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < wait {
			wait = left
		}
	}

	token := p.client.Publish(p.topic, p.qos, p.retained, payload)
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("%w: report %s", ErrTimeout, r.ID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish report %s: %w", r.ID, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(quiesceMillis)
	return nil
}
