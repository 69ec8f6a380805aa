package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/monitoring"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 25
	defaultMaxAttempts  = 5
	backoffBase         = 30 * time.Second
)

// Worker drains the outbox. One instance runs per process; rows are small
// and the marketplace's volume is low, so polling is plenty.
type Worker struct {
	db           *gorm.DB
	email        Sender
	sms          Sender
	logger       zerolog.Logger
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

func NewWorker(db *gorm.DB, email, sms Sender, logger zerolog.Logger) *Worker {
	return &Worker{
		db:           db,
		email:        email,
		sms:          sms,
		logger:       logger.With().Str("component", "notify_worker").Logger(),
		PollInterval: defaultPollInterval,
		BatchSize:    defaultBatchSize,
		MaxAttempts:  defaultMaxAttempts,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	w.logger.Info().Msg("outbox worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("outbox worker stopped")
			return
		case <-ticker.C:
			if n, err := w.ProcessDue(ctx); err != nil {
				w.logger.Error().Err(err).Msg("outbox poll failed")
			} else if n > 0 {
				w.logger.Debug().Int("delivered", n).Msg("outbox batch processed")
			}
		}
	}
}

// ProcessDue delivers every pending row whose next attempt is due and
// returns how many were sent successfully.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	var due []models.Notification
	err := w.db.
		Where("status = ? AND next_attempt_at <= ?", models.NotificationPending, time.Now()).
		Order("next_attempt_at").
		Limit(w.BatchSize).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if w.deliver(ctx, &due[i]) {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) deliver(ctx context.Context, n *models.Notification) bool {
	sender := w.email
	if n.Channel == models.ChannelSMS {
		sender = w.sms
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := sender.Send(sendCtx, n)
	cancel()

	n.Attempts++
	if err == nil {
		n.Status = models.NotificationSent
		n.LastError = ""
		monitoring.RecordNotification(string(n.Channel), "sent")
	} else {
		n.LastError = err.Error()
		if n.Attempts >= w.MaxAttempts {
			n.Status = models.NotificationFailed
			monitoring.RecordNotification(string(n.Channel), "failed")
			w.logger.Error().Err(err).
				Str("recipient", n.Recipient).
				Int("attempts", n.Attempts).
				Msg("notification abandoned")
		} else {
			// Exponential backoff: 30s, 1m, 2m, 4m.
			n.NextAttemptAt = time.Now().Add(backoffBase << (n.Attempts - 1))
			monitoring.RecordNotification(string(n.Channel), "retry")
			w.logger.Warn().Err(err).
				Str("recipient", n.Recipient).
				Int("attempts", n.Attempts).
				Msg("notification delivery failed, will retry")
		}
	}

	if err := w.db.Save(n).Error; err != nil {
		w.logger.Error().Err(err).Str("id", n.ID.String()).Msg("failed to update outbox row")
		return false
	}
	return n.Status == models.NotificationSent
}
