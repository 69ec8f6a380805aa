package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser      UserRole = "USER"
	RoleOrganizer UserRole = "ORGANIZER"
	RoleAdmin     UserRole = "ADMIN"
)

// User holds one account per buyer, organizer or admin. Email and phone are
// both optional columns but at least one is always present: organizers
// register with an email, buyers with a Togolese phone number, and guest
// checkout fills in whichever the buyer supplied.
type User struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email       *string   `gorm:"uniqueIndex" json:"email"`
	PhoneNumber *string   `gorm:"uniqueIndex" json:"phone_number"`
	Password    string    `gorm:"not null" json:"-"`
	Name        string    `json:"name"`
	Role        UserRole  `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

// DisplayName is what event listings and notifications show for the user.
func (user *User) DisplayName() string {
	if user.Name != "" {
		return user.Name
	}
	if user.Email != nil {
		return *user.Email
	}
	if user.PhoneNumber != nil {
		return *user.PhoneNumber
	}
	return "Unknown"
}
