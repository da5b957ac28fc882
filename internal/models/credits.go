package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditTrxType string

const (
	CreditTrxPurchase CreditTrxType = "purchase"
	CreditTrxEarned   CreditTrxType = "earned"
	CreditTrxUsed     CreditTrxType = "used"
	CreditTrxRefund   CreditTrxType = "refund"
	CreditTrxBonus    CreditTrxType = "bonus"
)

// UserCredits is an append-only ledger row. BalanceAfter snapshots the running
// total at insertion time; rows are never mutated after creation and the balance
// is never stored anywhere else.
type UserCredits struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Amount          int           `gorm:"not null" json:"amount"` // signed
	TransactionType CreditTrxType `gorm:"type:varchar(20);not null" json:"transaction_type"`
	Description     string        `gorm:"size:200" json:"description"`
	BookingID       *uuid.UUID    `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	BalanceAfter    int           `gorm:"not null" json:"balance_after"`

	CreatedAt time.Time `json:"created_at"`
}

func (u *UserCredits) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
