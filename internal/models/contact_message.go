package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContactMessage struct {
	gorm.Model
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name    string    `gorm:"not null" json:"name"`
	Email   string    `gorm:"not null" json:"email"`
	Subject string    `gorm:"not null" json:"subject"`
	Message string    `gorm:"not null" json:"message"`
}

func (m *ContactMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
