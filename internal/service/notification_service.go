package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/observability"
)

// NotificationService turns domain events into queued requester emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      notify.Queue
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue notify.Queue, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestSubmitted, n.handleRequestSubmitted)
	n.dispatcher.Subscribe(events.EventTicketPromoted, n.handleTicketPromoted)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleRequestSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestSubmittedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("RequestSubmitted",
		zap.String("event_id", event.ID),
		zap.String("user_request_id", payload.UserRequestID),
		zap.String("draft_ticket_id", payload.DraftTicketID))
	return n.enqueue(ctx, notify.NewConfirmation(payload.Email, payload.TrackingToken))
}

func (n *NotificationService) handleTicketPromoted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketPromotedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("TicketPromoted",
		zap.String("event_id", event.ID),
		zap.String("ticket_id", payload.TicketID),
		zap.String("draft_id", payload.DraftID))
	return n.fanOut(ctx, payload.Followers, payload.Title, payload.Status)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("event_id", event.ID),
		zap.String("ticket_id", payload.TicketID),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)))
	return n.fanOut(ctx, payload.Followers, payload.Title, payload.NewStatus)
}

// fanOut enqueues one message per follower; a failed enqueue does not stop the rest.
func (n *NotificationService) fanOut(ctx context.Context, followers []domain.Follower, title string, status domain.TicketStatus) error {
	var firstErr error
	for _, f := range followers {
		err := n.enqueue(ctx, notify.NewStatusUpdate(f.Email, title, string(status), f.TrackingToken))
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *NotificationService) enqueue(ctx context.Context, msg notify.Message) error {
	if n.queue == nil {
		return nil
	}
	if err := n.queue.Enqueue(ctx, msg); err != nil {
		n.metrics.RecordNotification(string(msg.Kind), "dropped")
		n.logger.Warn("notification dropped",
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
			zap.Error(err))
		return err
	}
	n.metrics.RecordNotification(string(msg.Kind), "queued")
	return nil
}
