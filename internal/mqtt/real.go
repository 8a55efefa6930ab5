package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Prefix     string
	BufferSize int
	Logger     *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
// Publishing never blocks on the broker.
type RealPublisher struct {
	client  paho.Client
	topics  Topics
	logger  *slog.Logger
	timeout time.Duration

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // set after the first successful connect
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. The broker being down at startup is not an error.
func NewRealPublisher(opts Options) *RealPublisher {
	p := newPublisher(NewTopics(opts.Prefix), opts.BufferSize, opts.Logger)

	clientID := opts.ClientID
	if clientID == "" {
		clientID = DefaultPrefix
	}
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.topics.System, string(willPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) { go p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(co)
	// With ConnectRetry the token only completes once connected.
	p.client.Connect()
	return p
}

func newPublisher(topics Topics, bufferSize int, logger *slog.Logger) *RealPublisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RealPublisher{
		topics:  topics,
		logger:  logger,
		timeout: 5 * time.Second,
		buf:     newRingBuffer(bufferSize),
	}
}

// PublishButton sends a press or release to the events topic.
func (p *RealPublisher) PublishButton(event ButtonEvent) error {
	payload, err := FormatButtonPayload(event)
	if err != nil {
		return fmt.Errorf("format button payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.topics.Events, payload: payload})
}

// PublishSystem sends a system lifecycle event to the system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.IsConnected() {
		p.mu.Lock()
		dropped := p.buf.push(msg)
		p.mu.Unlock()
		if dropped {
			p.logger.Warn("mqtt buffer full, dropped oldest message", "topic", msg.topic)
		}
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", msg.topic, err)
		}
		return nil
	default:
		go p.watch(token, msg.topic)
		return nil
	}
}

// watch logs the outcome of a publish that had not completed inline.
func (p *RealPublisher) watch(token paho.Token, topic string) {
	if !token.WaitTimeout(p.timeout) {
		p.logger.Warn("mqtt publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("mqtt publish failed", "topic", topic, "err", err)
	}
}

// onConnect replays buffered messages and, after a reconnect, replaces
// the retained last will.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	msgs, dropped := p.buf.drainAll()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	p.logger.Info("mqtt connected", "buffered", len(msgs), "dropped", dropped, "reconnect", reconnect)
	for _, msg := range msgs {
		if err := p.publish(msg); err != nil {
			p.logger.Warn("mqtt replay failed", "topic", msg.topic, "err", err)
		}
	}
	if reconnect {
		err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: EventReconnected, Retained: true})
		if err != nil {
			p.logger.Warn("mqtt publish reconnected", "err", err)
		}
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
