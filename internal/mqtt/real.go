package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/zigbee-light/internal/light"
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string // a random suffix is appended so replicas do not collide
	Username   string
	Password   string
	Topics     Topics
	BufferSize int

	// OnSet, if set, receives set-topic payloads. The topic is subscribed on
	// every (re)connect.
	OnSet func(ctx context.Context, payload []byte) error
}

// RealPublisher publishes to an MQTT broker. Messages published while the
// connection is down are held in an outbox and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	outbox *outbox
}

// NewRealPublisher creates a publisher and starts connecting. A broker that
// is not reachable within the connect timeout is not an error: the client
// keeps retrying and messages are buffered meanwhile.
func NewRealPublisher(opts Options, logger zerolog.Logger) (*RealPublisher, error) {
	logger = logger.With().Str("component", "mqtt").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	p := &RealPublisher{
		opts:   opts,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		outbox: newOutbox(opts.BufferSize, logger),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "OFFLINE", Reason: "connection lost"})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("format will: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(opts.Topics.System(), string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn().Err(err).Msg("connection lost")
		})
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.logger.Warn().Str("broker", opts.Broker).Msg("broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.logger.Info().Str("broker", p.opts.Broker).Msg("connected")

	if p.opts.OnSet != nil {
		c.Subscribe(p.opts.Topics.Set(), 1, func(_ paho.Client, msg paho.Message) {
			if err := p.opts.OnSet(p.ctx, msg.Payload()); err != nil {
				p.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("set command failed")
			}
		})
	}

	p.mu.Lock()
	held := p.outbox.drain()
	p.mu.Unlock()
	for _, m := range held {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}

	payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
	if err == nil {
		c.Publish(p.opts.Topics.System(), 1, false, payload)
	}
}

// PublishState sends the retained light state.
func (p *RealPublisher) PublishState(st light.State) error {
	payload, err := FormatStatePayload(st, p.now())
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return p.publish(p.opts.Topics.State(), 1, true, payload)
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.opts.Topics.System(), 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.outbox.push(pending{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.cancel()
	p.client.Disconnect(1000)
	return nil
}
