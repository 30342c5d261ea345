package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/mount"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultPublishTimeout bounds a single AMQP publish.
const DefaultPublishTimeout = 5 * time.Second

// AMQPConfig describes where change events are published.
//
// With an Exchange, events go to that topic exchange with routing key
// "mount.<signal>" (e.g. mount.create_mount). Without one they go straight to
// the durable Queue through the default exchange.
type AMQPConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	Exchange       string        `mapstructure:"exchange" yaml:"exchange,omitempty"`
	Queue          string        `mapstructure:"queue" yaml:"queue,omitempty"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout,omitempty"`
}

// Publisher is the subset of *amqp.Channel used by AMQPSink.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// amqpMessage is the JSON body of a published event.
type amqpMessage struct {
	Signal     string `json:"signal"`
	MountPoint string `json:"mount_point"`
	MountType  string `json:"mount_type"`
	Entity     string `json:"entity"`
}

// AMQPSink publishes every event as a persistent JSON message.
//
// Publish failures are logged and dropped; wrap the sink in Async to keep
// broker latency out of the service's write path.
type AMQPSink struct {
	pub      Publisher
	exchange string
	queue    string
	timeout  time.Duration
	close    func() error
}

// NewAMQPSink returns a sink publishing through pub.
func NewAMQPSink(pub Publisher, exchange, queue string, timeout time.Duration) *AMQPSink {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &AMQPSink{pub: pub, exchange: exchange, queue: queue, timeout: timeout}
}

// DialAMQP connects to cfg.URL, declares the exchange or queue and returns
// a sink owning the connection.
func DialAMQP(cfg AMQPConfig) (*AMQPSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp: url is required")
	}
	if cfg.Exchange == "" && cfg.Queue == "" {
		return nil, errors.New("amqp: exchange or queue is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if cfg.Exchange != "" {
		err = ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	} else {
		_, err = ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	}
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare AMQP destination: %w", err)
	}

	sink := NewAMQPSink(ch, cfg.Exchange, cfg.Queue, cfg.PublishTimeout)
	sink.close = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	logger.Info("Publishing mount events to AMQP (exchange=%q queue=%q)", cfg.Exchange, cfg.Queue)
	return sink, nil
}

// RoutingKey returns the routing key of event.
func (s *AMQPSink) RoutingKey(event mount.ChangeEvent) string {
	if s.exchange == "" {
		return s.queue
	}
	return "mount." + event.Signal.String()
}

func (s *AMQPSink) Notify(event mount.ChangeEvent) {
	body, err := json.Marshal(amqpMessage{
		Signal:     event.Signal.String(),
		MountPoint: "/" + event.MountPoint,
		MountType:  string(event.MountType),
		Entity:     event.Entity,
	})
	if err != nil {
		logger.Warn("Failed to encode mount event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err = s.pub.PublishWithContext(ctx, s.exchange, s.RoutingKey(event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Signal.String(),
		Body:         body,
	})
	if err != nil {
		logger.Warn("Failed to publish mount event %s for /%s: %v", event.Signal, event.MountPoint, err)
	}
}

// Close releases the broker connection when the sink owns one.
func (s *AMQPSink) Close() error {
	if s.close == nil {
		return nil
	}
	closeFn := s.close
	s.close = nil
	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to close AMQP connection: %w", err)
	}
	return nil
}
