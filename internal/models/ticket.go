package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketValid     TicketStatus = "VALID"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is one admission, issued at purchase time with a QR token for gate
// scanning. Exactly one payment row backs every ticket.
type Ticket struct {
	gorm.Model
	ID           uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	Status       TicketStatus `gorm:"type:varchar(16);not null;default:'VALID'" json:"status"`
	QRCode       string       `gorm:"not null;uniqueIndex" json:"qr_code"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User         `json:"-"`
	EventID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"event_id"`
	Event        Event        `json:"event,omitempty"`
	TicketTypeID uuid.UUID    `gorm:"type:uuid;not null;index" json:"ticket_type_id"`
	TicketType   TicketType   `json:"ticket_type,omitempty"`
	Payment      *Payment     `json:"payment,omitempty"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}
