package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/events"
)

// NotificationPublisher pushes serialized events onto an external channel.
// Satisfied by the Redis wrapper; nil disables channel delivery.
type NotificationPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationService forwards SLA events to operators: a Redis channel for
// downstream consumers plus email/webhook delivery stubs.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  NotificationPublisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher NotificationPublisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSlaTrackingStarted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventSlaFirstResponseBreach, n.handleBreach)
	n.dispatcher.Subscribe(events.EventSlaResolutionBreach, n.handleBreach)
	n.dispatcher.Subscribe(events.EventSlaResolutionCompliant, n.handleEvent)
	n.dispatcher.Subscribe(events.EventSlaConfigCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventSlaConfigUpdated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventSlaConfigDeleted, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("sla event",
		zap.String("type", string(event.Type)),
		zap.String("tenant_id", event.TenantID),
		zap.String("ticket_id", event.TicketID))
	n.publishToChannel(ctx, event)
	return nil
}

func (n *NotificationService) handleBreach(ctx context.Context, event events.Event) error {
	n.logger.Warn("sla breach",
		zap.String("type", string(event.Type)),
		zap.String("tenant_id", event.TenantID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.publishToChannel(ctx, event)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) publishToChannel(ctx context.Context, event events.Event) {
	if n.publisher == nil || n.cfg.RedisChannel == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal notification", zap.Error(err))
		return
	}
	if err := n.publisher.Publish(ctx, n.cfg.RedisChannel, payload); err != nil {
		n.logger.Warn("publish notification", zap.String("channel", n.cfg.RedisChannel), zap.Error(err))
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
