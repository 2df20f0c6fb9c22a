package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"go.jacobcolvin.com/eventsim/sim"
)

// Kafka publishes events to Kafka, routing each event type to a topic via
// the configured mapping and falling back to a default topic.
type Kafka struct {
	writer       *kafka.Writer
	topicMapping map[string]string
	defaultTopic string
}

// KafkaOptions configure a [Kafka] sink.
type KafkaOptions struct {
	// Brokers is a comma-separated bootstrap server list; empty means
	// localhost:9092.
	Brokers string
	// DefaultTopic receives events with no topic mapping; empty means
	// "events".
	DefaultTopic string
	// TopicMapping routes event types to topics.
	TopicMapping map[string]string

	// SASLUsername and SASLPassword enable SASL/PLAIN when set.
	SASLUsername string
	SASLPassword string
}

// NewKafka creates a Kafka sink.
func NewKafka(opts KafkaOptions) *Kafka {
	brokers := opts.Brokers
	if brokers == "" {
		brokers = "localhost:9092"
	}

	defaultTopic := opts.DefaultTopic
	if defaultTopic == "" {
		defaultTopic = "events"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	if opts.SASLUsername != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: opts.SASLUsername,
				Password: opts.SASLPassword,
			},
		}
	}

	return &Kafka{
		writer:       writer,
		topicMapping: opts.TopicMapping,
		defaultTopic: defaultTopic,
	}
}

// Emit publishes one event, keyed by its event type.
func (k *Kafka) Emit(e *sim.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	topic, ok := k.topicMapping[e.EventType]
	if !ok {
		topic = k.defaultTopic
	}

	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(e.EventType),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	err := k.writer.Close()
	if err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}

	return nil
}
