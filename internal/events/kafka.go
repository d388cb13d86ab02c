package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopic receives draft lifecycle events.
const DefaultTopic = "tripnav.route-drafts"

// KafkaPublisher writes events as CloudEvents keyed by draft id.
type KafkaPublisher struct {
	writer *kafkago.Writer
	source string
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, source: "tripnav", logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) {
	ce, err := NewCloudEvent(p.source, evt)
	if err != nil {
		p.logger.Error("failed to create cloud event", zap.String("event_type", evt.Type), zap.Error(err))
		return
	}
	value, err := json.Marshal(ce)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(evt.DraftID), Value: value}); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.writer.Topic),
			zap.String("event_type", evt.Type),
			zap.Error(err),
		)
	}
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
