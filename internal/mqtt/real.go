package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// DefaultBufferSize is the number of messages kept while disconnected.
const DefaultBufferSize = 64

// Options configure a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int

	// OnCommand is called with the payload of every message on Topics.Set.
	// It runs on a paho callback goroutine and may publish.
	OnCommand func(payload []byte)

	Log zerolog.Logger
}

// RealPublisher publishes to an actual MQTT broker and listens for rate commands.
// Events published while disconnected wait in an outbox and are replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    zerolog.Logger

	mu  sync.Mutex
	buf *outbox
}

// NewRealPublisher creates a publisher and starts connecting in the background.
// It does not block if the broker is unreachable; paho keeps retrying.
func NewRealPublisher(opts Options) *RealPublisher {
	if opts.ClientID == "" {
		opts.ClientID = "pin-toggler"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Topics == (Topics{}) {
		opts.Topics = NewTopics("")
	}

	p := &RealPublisher{
		topics: opts.Topics,
		log:    opts.Log,
		buf:    newOutbox(opts.BufferSize, opts.Log),
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetOrderMatters(false).
		SetWill(opts.Topics.System, string(WillPayload()), 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(c paho.Client) {
			p.onConnect(c, opts.OnCommand)
		})

	p.client = paho.NewClient(co)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client, onCommand func([]byte)) {
	p.log.Info().Msg("mqtt connected")

	if onCommand != nil {
		token := c.Subscribe(p.topics.Set, 1, func(_ paho.Client, msg paho.Message) {
			onCommand(msg.Payload())
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.log.Error().Err(token.Error()).Str("topic", p.topics.Set).Msg("mqtt subscribe failed")
		}
	}

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		p.log.Info().Int("count", len(pending)).Msg("replaying buffered mqtt messages")
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Dropped reports events the outbox has discarded.
func (p *RealPublisher) Dropped() DropCounts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.dropped
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// PublishRate sends a rate change event.
func (p *RealPublisher) PublishRate(event RateEvent) error {
	payload, err := FormatRatePayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{kind: kindRate, index: event.Index, topic: p.topics.Events, payload: payload})
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(bufferedMsg{kind: kindSystem, topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
