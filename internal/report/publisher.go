package report

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/resilience"
)

//go:generate mockgen -destination=mock_publisher_test.go -package=report . EventPublisher

// EventPublisher is the part of kafka.Producer the Publisher uses.
type EventPublisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Publisher sends runs to Kafka keyed by algorithm, so all runs of one
// algorithm land on the same partition in order. Calls go through a circuit
// breaker so a broker outage fails fast instead of stalling the harness.
type Publisher struct {
	producer EventPublisher
	breaker  *resilience.CircuitBreaker
}

func NewPublisher(producer EventPublisher, breaker *resilience.CircuitBreaker) *Publisher {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("report-publisher", resilience.CircuitBreakerConfig{})
	}
	return &Publisher{producer: producer, breaker: breaker}
}

func (p *Publisher) Record(ctx context.Context, run Run) error {
	if err := run.Validate(); err != nil {
		return err
	}
	err := p.breaker.Execute(func() error {
		return p.producer.Publish(ctx, kafka.Event{Key: run.Algorithm, Value: run})
	})
	if err != nil {
		return fmt.Errorf("publishing run %s: %w", run.ID, err)
	}
	return nil
}

// HandleMessage decodes runs published by Publisher and records them in sink.
func HandleMessage(sink Sink) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		run, err := kafka.DecodeJSON[Run](value)
		if err != nil {
			return err
		}
		if err := run.Validate(); err != nil {
			return err
		}
		return sink.Record(ctx, run)
	}
}
