package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const queueSize = 1000

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DropCounter is told about every event dropped on a full queue.
type DropCounter interface {
	EventDropped()
}

type KafkaPublisher struct {
	writer  KafkaWriter
	events  chan Event
	logger  *zap.Logger
	dropped DropCounter
	done    chan struct{}
	stopped chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger, dropped DropCounter) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaPublisher(writer, logger, dropped, queueSize)
}

func newKafkaPublisher(writer KafkaWriter, logger *zap.Logger, dropped DropCounter, size int) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:  writer,
		events:  make(chan Event, size),
		logger:  logger.Named("kafka_publisher"),
		dropped: dropped,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *KafkaPublisher) Publish(_ context.Context, event Event) {
	select {
	case p.events <- event:
	default:
		if p.dropped != nil {
			p.dropped.EventDropped()
		}
		p.logger.Warn("event queue full, dropping event",
			zap.String("event_type", event.Type),
			zap.String("key", event.Key),
		)
	}
}

func (p *KafkaPublisher) loop() {
	defer close(p.stopped)
	for {
		select {
		case event := <-p.events:
			p.send(event)
		case <-p.done:
			for {
				select {
				case event := <-p.events:
					p.send(event)
				default:
					return
				}
			}
		}
	}
}

func (p *KafkaPublisher) send(event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to serialize event", zap.Error(err), zap.String("event_type", event.Type))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("event_type", event.Type),
			zap.String("key", event.Key),
		)
	}
}

// Close flushes queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	close(p.done)
	<-p.stopped
	return p.writer.Close()
}
