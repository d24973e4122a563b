package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/voltline-backend/pkg/config"
)

const (
	sendGridMailPath    = "/v3/mail/send"
	sendGridDefaultHost = "https://api.sendgrid.com"
	sendTimeout         = 10 * time.Second
)

// SendGridSender delivers dynamic-template messages through sendgrid-go.
type SendGridSender struct {
	apiKey string
	from   string
	host   string
	now    func() time.Time
}

// NewSendGridSender builds a sender. An empty BaseURL targets the public API.
func NewSendGridSender(cfg config.SendgridConfig) *SendGridSender {
	host := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if host == "" {
		host = sendGridDefaultHost
	}
	return &SendGridSender{
		apiKey: cfg.APIKey,
		from:   cfg.DefaultFrom,
		host:   host,
		now:    time.Now,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.validate(); err != nil {
		return SendResult{}, err
	}
	if strings.TrimSpace(msg.TemplateID) == "" {
		return SendResult{}, errors.New("sendgrid template id is required")
	}
	if s.apiKey == "" {
		return SendResult{}, errors.New("sendgrid api key is required")
	}

	request := sendgrid.GetRequest(s.apiKey, sendGridMailPath, s.host)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(s.build(msg))

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return SendResult{}, fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return SendResult{}, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var messageID string
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	return SendResult{MessageID: messageID, SentAt: s.now().UTC()}, nil
}

func (s *SendGridSender) build(msg Message) *mail.SGMailV3 {
	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(msg.ToName, msg.To))
	for key, value := range msg.Props {
		personalization.SetDynamicTemplateData(key, value)
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", s.from))
	m.SetTemplateID(msg.TemplateID)
	m.AddPersonalizations(personalization)
	return m
}

// StatusError is returned when SendGrid rejects a request.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sendgrid error %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether resending could succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
