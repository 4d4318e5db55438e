package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/pkg/jobs"
)

// Notifier delivers workflow events. Delivery is fire-and-forget: emission
// never fails the operation that triggered it.
type Notifier interface {
	Publish(ctx context.Context, event models.Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, models.Event) {}

// EventNotifier hands events to a background queue whose workers publish
// them on a Redis channel. With no Redis client configured events are only
// logged, which keeps the workflow identical in development.
type EventNotifier struct {
	queue   *jobs.Queue
	logger  *zap.Logger
	channel string
}

// NewEventNotifier builds the notifier and its delivery queue. Call Start
// before publishing and Stop on shutdown.
func NewEventNotifier(client *redis.Client, channel string, workers int, logger *zap.Logger) *EventNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &EventNotifier{logger: logger, channel: channel}
	n.queue = jobs.NewQueue("notifications", n.deliver(client), jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return n
}

// Start launches the delivery workers.
func (n *EventNotifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (n *EventNotifier) Stop() {
	n.queue.Stop()
}

// Publish enqueues the event for delivery without blocking the caller.
// A full buffer drops the event with a warning; the caller's operation
// already succeeded.
func (n *EventNotifier) Publish(_ context.Context, event models.Event) {
	err := n.queue.TryEnqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Type,
		Payload: event,
	})
	if err != nil {
		n.logger.Sugar().Warnw("dropping notification", "type", event.Type, "error", err)
	}
}

func (n *EventNotifier) deliver(client *redis.Client) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.Event)
		if !ok {
			n.logger.Sugar().Errorw("notification job carries unexpected payload", "job_id", job.ID)
			return nil
		}
		if client == nil {
			n.logger.Sugar().Infow("notification",
				"type", event.Type,
				"recipients", event.Recipients,
				"payload", event.Payload,
			)
			return nil
		}
		body, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return client.Publish(ctx, n.channel, body).Err()
	}
}
