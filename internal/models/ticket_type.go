package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketType is one price tier of an event. Quantity is the remaining stock:
// event creation sets it to the tier's capacity and every purchase decrements
// it with a conditional update, so it can never go below zero. The original
// capacity is preserved on the event as TotalTickets.
type TicketType struct {
	gorm.Model
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Price    int       `gorm:"not null" json:"price"`
	Quantity int       `gorm:"not null" json:"quantity"`
	EventID  uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Event    Event     `json:"-"`
}

func (tt *TicketType) BeforeCreate(tx *gorm.DB) (err error) {
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	return
}
