package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification is an outbox row. Handlers insert rows inside the same
// transaction as the state change they announce; the worker delivers them
// after commit and retries with backoff. A handler never talks to the mail or
// SMS provider directly.
type Notification struct {
	gorm.Model
	ID            uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	Channel       NotificationChannel `gorm:"type:varchar(8);not null" json:"channel"`
	Recipient     string              `gorm:"not null" json:"recipient"`
	Subject       string              `json:"subject"`
	Body          string              `gorm:"not null" json:"body"`
	Status        NotificationStatus  `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	Attempts      int                 `gorm:"not null;default:0" json:"attempts"`
	LastError     string              `json:"last_error"`
	NextAttemptAt time.Time           `gorm:"index" json:"next_attempt_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.NextAttemptAt.IsZero() {
		n.NextAttemptAt = time.Now()
	}
	return
}
