package email

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
)

// Message is a transactional email rendered from a provider-side template.
type Message struct {
	To         string
	ToName     string
	TemplateID string
	Props      map[string]any
}

// SendResult identifies an accepted message.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// ErrRecipientRequired is returned when a message has no recipient.
var ErrRecipientRequired = errors.New("email recipient is required")

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrRecipientRequired
	}
	return nil
}

// NewSender picks SendGrid when an API key is configured and falls back to
// logging otherwise.
func NewSender(cfg config.SendgridConfig, logg *logger.Logger) Sender {
	if cfg.Enabled() {
		return NewSendGridSender(cfg)
	}
	return NewLogSender(logg)
}

// LogSender writes messages to the structured log instead of sending them.
type LogSender struct {
	logg *logger.Logger
	now  func() time.Time
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg, now: time.Now}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.validate(); err != nil {
		return SendResult{}, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"to":          msg.To,
			"template_id": msg.TemplateID,
			"props":       msg.Props,
		})
		s.logg.Info(logCtx, "email.log_sender.sent")
	}
	sentAt := s.now().UTC()
	return SendResult{MessageID: "log-" + sentAt.Format("20060102T150405.000000000"), SentAt: sentAt}, nil
}
