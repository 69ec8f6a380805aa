package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agbonon/togotickets/internal/models"
)

// ConsoleSMSSender simulates SMS delivery by logging. Integration with a
// local provider (Togocel, Moov) would replace this behind the same
// interface.
type ConsoleSMSSender struct {
	logger zerolog.Logger
}

func NewConsoleSMSSender(logger zerolog.Logger) *ConsoleSMSSender {
	return &ConsoleSMSSender{logger: logger}
}

func (s *ConsoleSMSSender) Send(ctx context.Context, n *models.Notification) error {
	s.logger.Info().
		Str("to", n.Recipient).
		Str("body", n.Body).
		Msg("SMS simulation")
	return nil
}
