package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors every real-time event onto a topic keyed by room so
// that events of one session stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka event delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return newKafkaPublisher(writer, log)
}

func newKafkaPublisher(writer messageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second, log: log}
}

func (publisher *KafkaPublisher) Publish(room string, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		publisher.log.Warn("encode kafka event", zap.String("room", room), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publisher.timeout)
	defer cancel()

	message := kafka.Message{
		Key:   []byte(room),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Name)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	if err := publisher.writer.WriteMessages(ctx, message); err != nil {
		publisher.log.Warn("publish kafka event", zap.String("room", room), zap.Error(err))
	}
}

func (publisher *KafkaPublisher) Close() error {
	return publisher.writer.Close()
}
