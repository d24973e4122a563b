package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/internal/subscriber"
	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/email"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/metrics"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the idempotency markers of the notification worker.
const ConsumerName = "dealer-notifications"

// Consumer turns domain events into in-app notifications and transactional
// email. It implements subscriber.Handler.
type Consumer struct {
	svc       Service
	sender    email.Sender
	templates config.SendgridConfig
	metrics   *metrics.DomainMetrics
	logg      *logger.Logger
}

// ConsumerParams wires a Consumer.
type ConsumerParams struct {
	Service   Service
	Sender    email.Sender
	Templates config.SendgridConfig
	Metrics   *metrics.DomainMetrics
	Logger    *logger.Logger
}

// NewConsumer builds the notification event handler.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Service == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:       params.Service,
		sender:    params.Sender,
		templates: params.Templates,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (c *Consumer) Handle(ctx context.Context, env subscriber.Envelope) error {
	switch env.EventType {
	case enums.EventLeadAssigned:
		var payload payloads.LeadAssignedEvent
		if err := env.Decode(&payload); err != nil {
			return err
		}
		return c.leadAssigned(ctx, env.EventID, payload)
	case enums.EventPayoutCreated:
		var payload payloads.PayoutCreatedEvent
		if err := env.Decode(&payload); err != nil {
			return err
		}
		return c.send(ctx, email.Message{
			To:         payload.DealerEmail,
			ToName:     payload.DealerName,
			TemplateID: c.templates.PayoutCreatedTemplate,
			Props: map[string]any{
				"dealer_name": payload.DealerName,
				"payout_id":   payload.PayoutID.String(),
				"amount":      payload.Amount.StringFixed(2),
				"order_count": len(payload.OrderIDs),
				"from_date":   payload.FromDate,
				"to_date":     payload.ToDate,
			},
		})
	case enums.EventPayoutStatusChanged:
		var payload payloads.PayoutStatusChangedEvent
		if err := env.Decode(&payload); err != nil {
			return err
		}
		return c.send(ctx, email.Message{
			To:         payload.DealerEmail,
			ToName:     payload.DealerName,
			TemplateID: c.templates.PayoutStatusTemplate,
			Props: map[string]any{
				"dealer_name": payload.DealerName,
				"payout_id":   payload.PayoutID.String(),
				"amount":      payload.Amount.StringFixed(2),
				"status":      string(payload.To),
			},
		})
	case enums.EventTestRideBooked:
		var payload payloads.TestRideBookedEvent
		if err := env.Decode(&payload); err != nil {
			return err
		}
		return c.testRideBooked(ctx, env.EventID, payload)
	default:
		return subscriber.ErrUnsupportedEvent
	}
}

func (c *Consumer) leadAssigned(ctx context.Context, eventID uuid.UUID, payload payloads.LeadAssignedEvent) error {
	priority := enums.NotificationPriorityNormal
	if payload.Priority == enums.LeadPriorityUrgent {
		priority = enums.NotificationPriorityHigh
	}
	if err := c.notify(ctx, eventID, NotifyInput{
		UserID:   payload.DealerUserID,
		Type:     enums.NotificationTypeLead,
		Priority: priority,
		Title:    "New lead assigned",
		Message:  fmt.Sprintf("%s sent an inquiry: %s", payload.CustomerName, payload.Subject),
		Link:     fmt.Sprintf("/leads/%s", payload.LeadID),
	}); err != nil {
		return err
	}
	return c.send(ctx, email.Message{
		To:         payload.DealerEmail,
		ToName:     payload.DealerName,
		TemplateID: c.templates.LeadAssignedTemplate,
		Props: map[string]any{
			"dealer_name":   payload.DealerName,
			"lead_id":       payload.LeadID.String(),
			"customer_name": payload.CustomerName,
			"subject":       payload.Subject,
			"priority":      string(payload.Priority),
			"source":        string(payload.Source),
		},
	})
}

func (c *Consumer) testRideBooked(ctx context.Context, eventID uuid.UUID, payload payloads.TestRideBookedEvent) error {
	when := payload.Date
	if payload.Time != "" {
		when = payload.Date + " " + payload.Time
	}
	if err := c.notify(ctx, eventID, NotifyInput{
		UserID:  payload.DealerUserID,
		Type:    enums.NotificationTypeTestRide,
		Title:   "Test ride booked",
		Message: fmt.Sprintf("%s booked a test ride for %s.", payload.CustomerName, when),
		Link:    fmt.Sprintf("/dealers/%s/test-rides/%s", payload.DealerID, payload.BookingID),
	}); err != nil {
		return err
	}
	return c.send(ctx, email.Message{
		To:         payload.CustomerEmail,
		ToName:     payload.CustomerName,
		TemplateID: c.templates.TestRideTemplate,
		Props: map[string]any{
			"customer_name": payload.CustomerName,
			"dealer_name":   payload.DealerName,
			"date":          payload.Date,
			"time":          payload.Time,
		},
	})
}

// notify writes the in-app row under an id derived from the event so a
// redelivered event never produces a second row.
func (c *Consumer) notify(ctx context.Context, eventID uuid.UUID, input NotifyInput) error {
	if input.UserID == uuid.Nil {
		c.logg.Warn(ctx, "notification recipient missing")
		return nil
	}
	id := uuid.NewSHA1(eventID, []byte(input.UserID.String()+":"+string(input.Type)))
	input.ID = &id
	_, err := c.svc.Notify(ctx, input)
	return err
}

// send delivers email. Permanent provider rejections are logged and dropped;
// anything transient is returned so the message is redelivered.
func (c *Consumer) send(ctx context.Context, msg email.Message) error {
	if msg.TemplateID == "" {
		c.logg.Info(ctx, "email template not configured")
		return nil
	}
	result, err := c.sender.Send(ctx, msg)
	if err == nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"email_message_id": result.MessageID,
			"template_id":      msg.TemplateID,
		}), "email sent")
		return nil
	}

	var statusErr *email.StatusError
	if errors.As(err, &statusErr) && statusErr.Retryable() {
		return err
	}
	if statusErr == nil && !errors.Is(err, email.ErrRecipientRequired) {
		return err
	}
	c.metrics.NotificationFailed("email")
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
		"template_id": msg.TemplateID,
		"error":       err.Error(),
	}), "email rejected")
	return nil
}
