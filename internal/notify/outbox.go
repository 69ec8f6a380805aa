// Package notify delivers email and SMS through a database outbox. Handlers
// enqueue rows inside the transaction that produced the news; the worker
// picks them up after commit and retries failures with backoff. A request is
// never blocked on, or failed by, a provider call.
package notify

import (
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/models"
)

// EnqueueEmail inserts a pending email row using tx, which may be a live
// transaction so the message only exists if the surrounding change commits.
func EnqueueEmail(tx *gorm.DB, recipient, subject, body string) error {
	return tx.Create(&models.Notification{
		Channel:   models.ChannelEmail,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}).Error
}

// EnqueueSMS inserts a pending SMS row. Same transactional contract as
// EnqueueEmail.
func EnqueueSMS(tx *gorm.DB, recipient, body string) error {
	return tx.Create(&models.Notification{
		Channel:   models.ChannelSMS,
		Recipient: recipient,
		Body:      body,
	}).Error
}
