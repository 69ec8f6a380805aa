package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Mobile-money rails. No gateway is called: checkout records the declared
// method and completes the payment immediately.
const (
	MethodTMoney = "TMONEY"
	MethodFlooz  = "FLOOZ"
)

// Payment records the mobile-money charge behind a single ticket. Amounts are
// whole CFA francs.
type Payment struct {
	gorm.Model
	ID            uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	Amount        int           `gorm:"not null" json:"amount"`
	Method        string        `gorm:"not null" json:"method"`
	Status        PaymentStatus `gorm:"type:varchar(16);not null;default:'COMPLETED'" json:"status"`
	TransactionID string        `gorm:"not null" json:"transaction_id"`
	TicketID      uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"ticket_id"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}

// ValidPaymentMethod reports whether method names a supported rail.
func ValidPaymentMethod(method string) bool {
	return method == MethodTMoney || method == MethodFlooz
}
