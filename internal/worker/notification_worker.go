package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/observability"
)

// NotificationWorker drains the notification queue and hands each message to
// the sender. Failed deliveries are logged and dropped.
type NotificationWorker struct {
	queue   notify.Queue
	sender  notify.Sender
	logger  *zap.Logger
	metrics *observability.Metrics

	// errorBackoff pauses the loop after a queue read error.
	errorBackoff time.Duration
}

// NewNotificationWorker creates the worker.
func NewNotificationWorker(queue notify.Queue, sender notify.Sender, logger *zap.Logger, metrics *observability.Metrics) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		queue:        queue,
		sender:       sender,
		logger:       logger,
		metrics:      metrics,
		errorBackoff: time.Second,
	}
}

// Run processes messages until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	w.logger.Info("notification worker started")
	defer w.logger.Info("notification worker stopped")

	for {
		msg, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Warn("notification dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.errorBackoff):
			}
			continue
		}
		w.process(ctx, msg)
	}
}

func (w *NotificationWorker) process(ctx context.Context, msg notify.Message) {
	if err := notify.Deliver(ctx, w.sender, msg); err != nil {
		w.metrics.RecordNotification(string(msg.Kind), "failed")
		w.logger.Error("notification delivery failed",
			zap.String("notification_id", msg.ID),
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
			zap.Error(err))
		return
	}
	w.metrics.RecordNotification(string(msg.Kind), "sent")
	w.logger.Debug("notification delivered",
		zap.String("notification_id", msg.ID),
		zap.String("kind", string(msg.Kind)),
		zap.String("to", msg.To))
}

// Start runs the worker in its own goroutine. The returned channel closes
// once the worker has exited.
func (w *NotificationWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return done
}
