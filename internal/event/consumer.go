package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	pkgkafka "github.com/mlimwengu/CourseHubGo/pkg/kafka"
)

// Consumer group for the notification fan-out workers.
const FanOutGroupID = "coursehub-fanout"

// idempotencyTTL bounds how long handled event IDs are remembered. The
// notification dedup keys remain the durable guard beyond this window.
const idempotencyTTL = 24 * time.Hour

// FanOutSink receives decoded domain events and produces per-recipient
// notifications. Implemented by service.NotificationService.
type FanOutSink interface {
	FanOutReviewCreated(ctx context.Context, eventID string, data ReviewCreatedData) error
	FanOutRedemptionStatusChanged(ctx context.Context, eventID string, data RedemptionStatusChangedData) error
	FanOutEnrollmentCompleted(ctx context.Context, eventID string, data EnrollmentCompletedData) error
}

// FanOutConsumer subscribes to the domain event topics and turns each
// committed state change into per-recipient notifications.
type FanOutConsumer struct {
	consumers []*pkgkafka.Consumer
	logger    *slog.Logger
}

// NewFanOutConsumer wires one consumer per topic, all sharing an idempotency
// store and an optional dead letter producer.
func NewFanOutConsumer(brokers []string, notifications FanOutSink, dlq *pkgkafka.DLQProducer, logger *slog.Logger) *FanOutConsumer {
	store := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)

	wire := func(topic string, handler pkgkafka.Handler) *pkgkafka.Consumer {
		return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers: brokers,
			GroupID: FanOutGroupID,
			Topic:   topic,
		}, pkgkafka.IdempotentHandler(store, handler, logger), dlq, logger)
	}

	return &FanOutConsumer{
		consumers: []*pkgkafka.Consumer{
			wire(TopicReviewCreated, handleReviewCreated(notifications)),
			wire(TopicRedemptionStatusChanged, handleRedemptionStatusChanged(notifications)),
			wire(TopicEnrollmentCompleted, handleEnrollmentCompleted(notifications)),
		},
		logger: logger,
	}
}

// Start runs all topic consumers until the context is canceled or one of
// them fails.
func (c *FanOutConsumer) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, consumer := range c.consumers {
		consumer := consumer
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}
	return g.Wait()
}

// Close shuts down all topic consumers.
func (c *FanOutConsumer) Close() error {
	var firstErr error
	for _, consumer := range c.consumers {
		if err := consumer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func handleReviewCreated(notifications FanOutSink) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		var data ReviewCreatedData
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal review.created payload: %w", err)
		}
		return notifications.FanOutReviewCreated(ctx, event.EventID, data)
	}
}

func handleRedemptionStatusChanged(notifications FanOutSink) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		var data RedemptionStatusChangedData
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal redemption.status_changed payload: %w", err)
		}
		return notifications.FanOutRedemptionStatusChanged(ctx, event.EventID, data)
	}
}

func handleEnrollmentCompleted(notifications FanOutSink) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		var data EnrollmentCompletedData
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal enrollment.completed payload: %w", err)
		}
		return notifications.FanOutEnrollmentCompleted(ctx, event.EventID, data)
	}
}
