package credits

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/apperr"
	"github.com/danukusuma/servehub_be/internal/db"
	"github.com/danukusuma/servehub_be/internal/models"
)

// Ledger is the append-only credit transaction log. The balance is never
// stored on the user; it is the sum of all ledger amounts, snapshotted into
// balance_after on every row at append time.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger(gdb *gorm.DB) *Ledger {
	return &Ledger{DB: gdb}
}

// Balance returns the user's current credit balance.
func (l *Ledger) Balance(userID uuid.UUID) (int, error) {
	return l.balance(l.DB, userID)
}

func (l *Ledger) balance(tx *gorm.DB, userID uuid.UUID) (int, error) {
	var total int
	err := tx.Model(&models.UserCredits{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// AppendTx appends a ledger row inside the caller's transaction. The user row
// is locked first so concurrent appends for the same user serialize and every
// balance_after is a gap-free running total. Existing rows are never touched.
func (l *Ledger) AppendTx(tx *gorm.DB, userID uuid.UUID, amount int, trxType models.CreditTrxType, bookingID *uuid.UUID, description string) (*models.UserCredits, error) {
	if amount == 0 {
		return nil, errors.New("ledger amount must be non-zero")
	}

	var user models.User
	if err := db.ForUpdate(tx).Select("id").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, err
	}

	balance, err := l.balance(tx, userID)
	if err != nil {
		return nil, err
	}

	row := models.UserCredits{
		UserID:          userID,
		Amount:          amount,
		TransactionType: trxType,
		Description:     description,
		BookingID:       bookingID,
		BalanceAfter:    balance + amount,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Purchase tops up the user's balance with a positive purchase row.
func (l *Ledger) Purchase(userID uuid.UUID, amount int) (*models.UserCredits, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}

	var row *models.UserCredits
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = l.AppendTx(tx, userID, amount, models.CreditTrxPurchase, nil, fmt.Sprintf("Purchased %d credits", amount))
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Recent returns the newest ledger rows for the user.
func (l *Ledger) Recent(userID uuid.UUID, limit int) ([]models.UserCredits, error) {
	var rows []models.UserCredits
	err := l.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
