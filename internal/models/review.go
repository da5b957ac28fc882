package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is one-to-one with a completed booking. The rating is immutable after
// creation; provider_response is the only field that may change later.
type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	ServiceID  uint      `gorm:"index" json:"service_id"`
	CustomerID uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ProviderID uuid.UUID `gorm:"type:uuid;index" json:"provider_id"`

	Rating           int    `gorm:"not null" json:"rating"` // 1-5
	Comment          string `gorm:"type:text" json:"comment"`
	ProviderResponse string `gorm:"type:text" json:"provider_response"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Booking  *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Customer *User    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Provider *User    `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
