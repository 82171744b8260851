package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/vexeradubbing/applybot/internal/model"
)

// EventProducer publishes application lifecycle events.
type EventProducer interface {
	Start(ctx context.Context)
	Publish(ctx context.Context, event model.LifecycleEvent) error
	Close()
}

type producer struct {
	asyncProducer sarama.AsyncProducer
	topic         string
	log           *slog.Logger
	wg            *sync.WaitGroup
	closeOnce     sync.Once
}

// NewProducer wraps a sarama AsyncProducer for the lifecycle topic.
func NewProducer(asyncProducer sarama.AsyncProducer, topic string, log *slog.Logger, wg *sync.WaitGroup) EventProducer {
	if asyncProducer == nil || log == nil || wg == nil {
		panic("NewProducer: nil dependencies provided")
	}
	if topic == "" {
		panic("NewProducer: topic must not be empty")
	}
	return &producer{
		asyncProducer: asyncProducer,
		topic:         topic,
		log:           log,
		wg:            wg,
	}
}

// Start launches background handlers for success and error channels.
func (p *producer) Start(ctx context.Context) {
	p.log.Info("Starting Kafka producer handlers")
	p.wg.Add(2)
	go p.handleSuccess(ctx)
	go p.handleErrors(ctx)
}

func (p *producer) handleSuccess(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case msg, ok := <-p.asyncProducer.Successes():
			if !ok {
				p.log.Info("Kafka successes channel closed")
				return
			}
			key, _ := msg.Key.Encode()
			p.log.Info("Event delivered",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("key", string(key)))
		case <-ctx.Done():
			p.log.Info("Kafka success handler stopped by context")
			return
		}
	}
}

func (p *producer) handleErrors(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case err, ok := <-p.asyncProducer.Errors():
			if !ok {
				p.log.Info("Kafka errors channel closed")
				return
			}
			p.log.Error("Event delivery failed",
				slog.String("topic", err.Msg.Topic),
				slog.Any("error", err.Err))
		case <-ctx.Done():
			p.log.Info("Kafka error handler stopped by context")
			return
		}
	}
}

// Publish enqueues one lifecycle event. Delivery outcome is reported on
// the producer channels drained by Start.
func (p *producer) Publish(ctx context.Context, event model.LifecycleEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ApplicationID),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.asyncProducer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *producer) Close() {
	p.closeOnce.Do(func() {
		p.asyncProducer.AsyncClose()
	})
}
