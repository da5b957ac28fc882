package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountBusiness   AccountType = "business"
	AccountCompany    AccountType = "company"
)

// ProviderProfile aggregates a provider's marketplace stats. Rating is derived
// from reviews; total_earnings and jobs_completed only ever grow and are written
// exclusively by the booking state machine on completion.
type ProviderProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	AccountType  AccountType `gorm:"type:varchar(20);default:'individual'" json:"account_type"`
	BusinessName string      `gorm:"type:varchar(200)" json:"business_name"`
	Description  string      `gorm:"type:text" json:"description"`

	Rating        decimal.Decimal `gorm:"type:numeric(3,2);default:0" json:"rating"`
	TotalEarnings decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"total_earnings"`
	JobsCompleted int             `gorm:"default:0" json:"jobs_completed"`

	IsVerified  bool `gorm:"default:false" json:"is_verified"`
	IsAvailable bool `gorm:"default:true" json:"is_available"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *ProviderProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
