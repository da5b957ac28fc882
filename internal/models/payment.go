package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type PaymentType string

const (
	PaymentTypeImmediate   PaymentType = "immediate"
	PaymentTypeLater       PaymentType = "later"
	PaymentTypeInstallment PaymentType = "installment"
	PaymentTypeCredits     PaymentType = "credits"
)

type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Amount        decimal.Decimal `gorm:"type:numeric(10,2)" json:"amount"`
	PaymentType   PaymentType     `gorm:"type:varchar(20)" json:"payment_type"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20)" json:"payment_method"`
	Status        PaymentStatus   `gorm:"type:varchar(20);default:'pending'" json:"status"`

	TransactionID   string         `gorm:"type:varchar(100);index" json:"transaction_id"`
	GatewayResponse datatypes.JSON `json:"gateway_response"` // opaque blob from the gateway

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Booking      *Booking      `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Installments []Installment `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"installments,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "pending"
	InstallmentStatusPaid      InstallmentStatus = "paid"
	InstallmentStatusOverdue   InstallmentStatus = "overdue"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

// Installment amounts always sum to the parent payment amount exactly; the last
// installment absorbs any rounding remainder of the split.
type Installment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID uuid.UUID `gorm:"type:uuid;index;not null" json:"payment_id"`

	InstallmentNumber int               `gorm:"not null" json:"installment_number"` // contiguous from 1
	Amount            decimal.Decimal   `gorm:"type:numeric(10,2)" json:"amount"`
	DueDate           time.Time         `gorm:"type:date" json:"due_date"`
	PaidDate          *time.Time        `gorm:"type:date" json:"paid_date,omitempty"`
	Status            InstallmentStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	TransactionID     string            `gorm:"type:varchar(100)" json:"transaction_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Installment) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
