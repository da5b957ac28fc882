package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyBooking NotificationType = "booking"
	NotifyPayment NotificationType = "payment"
	NotifyReview  NotificationType = "review"
	NotifySystem  NotificationType = "system"
)

type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title     string           `gorm:"size:200" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	BookingID *uuid.UUID       `gorm:"type:uuid" json:"booking_id,omitempty"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
