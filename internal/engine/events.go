package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/book-expert/logger"
	"github.com/segmentio/kafka-go"

	"github.com/forkadarshp/metrix/internal/config"
)

// RunCompleted is published once a run reaches a terminal status.
type RunCompleted struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	ItemCount  int    `json:"item_count"`
	FinishedAt string `json:"finished_at"`
}

// RunItemCompleted is published once an individual run-item reaches a
// terminal status.
type RunItemCompleted struct {
	RunID      string `json:"run_id"`
	ItemID     string `json:"item_id"`
	Status     string `json:"status"`
	VendorLabel string `json:"vendor_label"`
}

// EventPublisher publishes domain events to a single Kafka topic,
// degrading to log-only mode when disabled or unreachable so it never
// blocks the engine's critical path.
type EventPublisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	log     *logger.Logger
}

// NewEventPublisher builds a publisher from the service's events config.
// A disabled config or an empty broker list falls back to log-only mode.
func NewEventPublisher(cfg config.EventsConfig, log *logger.Logger) *EventPublisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info("domain events disabled, using log-only mode")

		return &EventPublisher{enabled: false, log: log}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	log.Info("domain event publisher initialized for topic %s", cfg.Topic)

	return &EventPublisher{writer: writer, topic: cfg.Topic, enabled: true, log: log}
}

// PublishRunCompleted publishes (or logs, if disabled) a RunCompleted event.
func (p *EventPublisher) PublishRunCompleted(ctx context.Context, event RunCompleted) {
	p.publish(ctx, "run_completed", event.RunID, event)
}

// PublishRunItemCompleted publishes (or logs, if disabled) a
// RunItemCompleted event.
func (p *EventPublisher) PublishRunItemCompleted(ctx context.Context, event RunItemCompleted) {
	p.publish(ctx, "run_item_completed", event.ItemID, event)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, key string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to marshal %s event: %v", eventType, err)

		return
	}

	if !p.enabled || p.writer == nil {
		p.log.Info("event %s (log-only): %s", eventType, string(payload))

		return
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish %s event for %s: %v", eventType, key, err)
	}
}

// Close releases the underlying Kafka writer, if any.
func (p *EventPublisher) Close() error {
	if p.writer == nil {
		return nil
	}

	return p.writer.Close()
}
