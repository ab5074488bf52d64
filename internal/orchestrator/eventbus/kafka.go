// Package eventbus provides a Kafka-backed alternative to the
// orchestrator's default in-process progress channel, for deployments that
// fan research progress out to other services.
package eventbus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"deepresearch/internal/orchestrator"
)

// Writer is the subset of *kafka.Writer the publisher needs, so tests can
// supply a fake.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publishes every progress event as a JSON message keyed by
// research ID, so a consumer group can partition by run.
type KafkaPublisher struct {
	writer Writer
	topic  string
}

// NewKafkaPublisher builds a publisher backed by a kafka.Writer addressed
// at brokers, publishing to topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: w, topic: topic}
}

// NewKafkaPublisherFromBrokerString parses a comma-separated broker list.
func NewKafkaPublisherFromBrokerString(brokers, topic string) *KafkaPublisher {
	list := strings.Split(brokers, ",")
	for i, b := range list {
		list[i] = strings.TrimSpace(b)
	}
	return NewKafkaPublisher(list, topic)
}

// Publish implements orchestrator.ProgressPublisher. Failures are logged
// and swallowed: progress delivery is best-effort and must never interrupt
// a research run.
func (p *KafkaPublisher) Publish(ev orchestrator.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("eventbus: marshal progress event")
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.ResearchID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("eventbus: publish progress event")
	}
}

// Close releases the underlying Kafka writer's connections.
func (p *KafkaPublisher) Close() error {
	if w, ok := p.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}
