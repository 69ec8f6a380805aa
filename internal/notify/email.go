package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/agbonon/togotickets/internal/models"
)

// Sender delivers one notification over its channel.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// ResendEmailSender sends email through the Resend API.
type ResendEmailSender struct {
	client *resend.Client
	from   string
	logger zerolog.Logger
}

func NewResendEmailSender(apiKey, from string, logger zerolog.Logger) *ResendEmailSender {
	return &ResendEmailSender{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger,
	}
}

func (s *ResendEmailSender) Send(ctx context.Context, n *models.Notification) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{n.Recipient},
		Subject: n.Subject,
		Text:    n.Body,
		Html:    strings.ReplaceAll(n.Body, "\n", "<br>"),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("to", n.Recipient).
		Msg("email sent via Resend")
	return nil
}

// ConsoleEmailSender logs the message instead of sending it. Used when no
// RESEND_API_KEY is configured, so development setups still see the traffic.
type ConsoleEmailSender struct {
	logger zerolog.Logger
}

func NewConsoleEmailSender(logger zerolog.Logger) *ConsoleEmailSender {
	return &ConsoleEmailSender{logger: logger}
}

func (s *ConsoleEmailSender) Send(ctx context.Context, n *models.Notification) error {
	s.logger.Info().
		Str("to", n.Recipient).
		Str("subject", n.Subject).
		Str("body", n.Body).
		Msg("mock email send")
	return nil
}

// NewEmailSender picks the real provider when configured and the console
// fallback otherwise.
func NewEmailSender(apiKey, from string, logger zerolog.Logger) Sender {
	if apiKey == "" {
		return NewConsoleEmailSender(logger)
	}
	return NewResendEmailSender(apiKey, from, logger)
}
