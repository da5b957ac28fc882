package credits

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/apperr"
	"github.com/danukusuma/servehub_be/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.UserCredits{},
	))
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB) uuid.UUID {
	t.Helper()
	u := models.User{
		Name:     "Test User",
		Email:    fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Password: "x",
		Role:     models.RoleCustomer,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u.ID
}

func TestPurchaseRejectsNonPositiveAmount(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)
	uid := seedUser(t, gdb)

	for _, amount := range []int{0, -5} {
		_, err := ledger.Purchase(uid, amount)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	var count int64
	require.NoError(t, gdb.Model(&models.UserCredits{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPurchaseAppendsRow(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)
	uid := seedUser(t, gdb)

	row, err := ledger.Purchase(uid, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, row.Amount)
	assert.Equal(t, 100, row.BalanceAfter)
	assert.Equal(t, models.CreditTrxPurchase, row.TransactionType)

	balance, err := ledger.Balance(uid)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestBalanceIsSumOfLedger(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)
	uid := seedUser(t, gdb)

	amounts := []int{100, -30, 50, -20}
	running := 0
	for _, a := range amounts {
		trxType := models.CreditTrxPurchase
		if a < 0 {
			trxType = models.CreditTrxUsed
		}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			row, err := ledger.AppendTx(tx, uid, a, trxType, nil, "test")
			if err != nil {
				return err
			}
			running += a
			assert.Equal(t, running, row.BalanceAfter)
			return nil
		})
		require.NoError(t, err)
	}

	balance, err := ledger.Balance(uid)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestAppendTxRejectsZeroAmount(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)
	uid := seedUser(t, gdb)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.AppendTx(tx, uid, 0, models.CreditTrxBonus, nil, "test")
		return err
	})
	require.Error(t, err)
}

func TestAppendTxUnknownUser(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.AppendTx(tx, uuid.New(), 10, models.CreditTrxPurchase, nil, "test")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestBalanceEmptyLedgerIsZero(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)
	uid := seedUser(t, gdb)

	balance, err := ledger.Balance(uid)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	gdb := openTestDB(t)
	ledger := NewLedger(gdb)
	uid := seedUser(t, gdb)

	for i := 1; i <= 5; i++ {
		_, err := ledger.Purchase(uid, i*10)
		require.NoError(t, err)
	}

	rows, err := ledger.Recent(uid, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}
