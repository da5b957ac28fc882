package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // waiting for provider decision
	BookingStatusConfirmed BookingStatus = "confirmed" // provider accepted
	BookingStatusOngoing   BookingStatus = "ongoing"   // work in progress
	BookingStatusCompleted BookingStatus = "completed" // terminal
	BookingStatusCancelled BookingStatus = "cancelled" // terminal
)

// Terminal reports whether no further transition may leave s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type PaymentMethod string

const (
	MethodCard    PaymentMethod = "card"
	MethodPaypal  PaymentMethod = "paypal"
	MethodCredits PaymentMethod = "credits"
	MethodCash    PaymentMethod = "cash"
)

// Booking is never physically deleted; cancellation is soft state via status.
type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null" json:"customer_id"`
	ProviderID uuid.UUID `gorm:"type:uuid;index;not null" json:"provider_id"`
	ServiceID  uint      `gorm:"index;not null" json:"service_id"`

	ScheduledDate time.Time `gorm:"type:date" json:"scheduled_date"`
	ScheduledTime string    `gorm:"type:varchar(5)" json:"scheduled_time"` // HH:MM

	Status BookingStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Notes  string        `gorm:"type:text" json:"notes"`

	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2)" json:"total_amount"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20)" json:"payment_method"`
	IsPaid        bool            `gorm:"default:false" json:"is_paid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Customer *User     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Provider *User     `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Service  *Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Payments []Payment `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
