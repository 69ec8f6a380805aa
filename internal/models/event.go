package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventStatus string

const (
	EventPending               EventStatus = "PENDING"
	EventApproved              EventStatus = "APPROVED"
	EventRejected              EventStatus = "REJECTED"
	EventCancellationRequested EventStatus = "CANCELLATION_REQUESTED"
	EventCancelled             EventStatus = "CANCELLED"
)

// Event is created by an organizer and sits in PENDING until an admin
// moderates it. Every organizer edit drops it back to PENDING, even when it
// was already APPROVED.
type Event struct {
	gorm.Model
	ID                 uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	Title              string      `gorm:"not null" json:"title"`
	Description        string      `gorm:"not null" json:"description"`
	Date               time.Time   `gorm:"not null" json:"date"`
	Location           string      `gorm:"not null" json:"location"`
	Category           string      `json:"category"`
	Price              int         `gorm:"not null" json:"price"`
	ImageURL           string      `json:"image_url"`
	TMoneyNumber       string      `json:"tmoney_number"`
	FloozNumber        string      `json:"flooz_number"`
	TotalTickets       int         `gorm:"not null" json:"total_tickets"`
	Status             EventStatus `gorm:"type:varchar(32);not null;default:'PENDING';index" json:"status"`
	CancellationReason *string     `json:"cancellation_reason"`

	// Ownership is a real foreign key to the organizer's account.
	// OrganizerName is kept only for display and may go stale.
	OrganizerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer     User      `gorm:"foreignKey:OrganizerID" json:"-"`
	OrganizerName string    `json:"organizer"`

	TicketTypes []TicketType `json:"ticket_types,omitempty"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// CancellationAllowed reports whether the organizer may still ask for the
// event to be cancelled.
func (event *Event) CancellationAllowed() bool {
	return event.Status != EventCancelled && event.Status != EventCancellationRequested
}
