package booking

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/apperr"
	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/services/credits"
)

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, models.NotificationType, string, string, *uuid.UUID) {}

type fixture struct {
	DB         *gorm.DB
	SM         *StateMachine
	Ledger     *credits.Ledger
	CustomerID uuid.UUID
	ProviderID uuid.UUID
	Service    models.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.ProviderProfile{},
		&models.ServiceCategory{},
		&models.Service{},
		&models.Booking{},
		&models.UserCredits{},
	))

	customer := models.User{Name: "Customer", Email: "customer@example.com", Password: "x", Role: models.RoleCustomer, IsActive: true}
	provider := models.User{Name: "Provider", Email: "provider@example.com", Password: "x", Role: models.RoleProvider, IsActive: true}
	require.NoError(t, gdb.Create(&customer).Error)
	require.NoError(t, gdb.Create(&provider).Error)

	profile := models.ProviderProfile{UserID: provider.ID, AccountType: "individual", IsAvailable: true}
	require.NoError(t, gdb.Create(&profile).Error)

	cat := models.ServiceCategory{Name: "Cleaning"}
	require.NoError(t, gdb.Create(&cat).Error)

	svc := models.Service{
		ProviderID:      provider.ID,
		CategoryID:      cat.ID,
		Title:           "House cleaning",
		Price:           decimal.RequireFromString("150.00"),
		CreditsRequired: 15,
		IsActive:        true,
	}
	require.NoError(t, gdb.Create(&svc).Error)

	ledger := credits.NewLedger(gdb)
	return &fixture{
		DB:         gdb,
		SM:         NewStateMachine(gdb, ledger, nopNotifier{}),
		Ledger:     ledger,
		CustomerID: customer.ID,
		ProviderID: provider.ID,
		Service:    svc,
	}
}

func (f *fixture) createBooking(t *testing.T, method models.PaymentMethod) *models.Booking {
	t.Helper()
	b, err := f.SM.Create(f.CustomerID, CreateInput{
		ServiceID:     f.Service.ID,
		ScheduledDate: time.Now().AddDate(0, 0, 7),
		ScheduledTime: "10:00",
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return b
}

func TestCreateStartsPending(t *testing.T) {
	f := newFixture(t)

	b := f.createBooking(t, models.MethodCard)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.False(t, b.IsPaid)
	assert.True(t, b.TotalAmount.Equal(f.Service.Price))
	assert.Equal(t, f.ProviderID, b.ProviderID)
}

func TestCreateRejectsOwnService(t *testing.T) {
	f := newFixture(t)

	_, err := f.SM.Create(f.ProviderID, CreateInput{
		ServiceID:     f.Service.ID,
		ScheduledDate: time.Now().AddDate(0, 0, 1),
		ScheduledTime: "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateRejectsInactiveService(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.DB.Model(&models.Service{}).Where("id = ?", f.Service.ID).Update("is_active", false).Error)

	_, err := f.SM.Create(f.CustomerID, CreateInput{
		ServiceID:     f.Service.ID,
		ScheduledDate: time.Now(),
		ScheduledTime: "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAcceptOnlyProvider(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Accept(b.ID, f.CustomerID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotAuthorized, apperr.KindOf(err))

	got, err := f.SM.Accept(b.ID, f.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Accept(b.ID, f.ProviderID)
	require.NoError(t, err)
	_, err = f.SM.Start(b.ID, f.ProviderID)
	require.NoError(t, err)
	got, err := f.SM.Complete(b.ID, f.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)

	var profile models.ProviderProfile
	require.NoError(t, f.DB.First(&profile, "user_id = ?", f.ProviderID).Error)
	assert.Equal(t, 1, profile.JobsCompleted)
	assert.True(t, profile.TotalEarnings.Equal(f.Service.Price))
}

func TestCompleteIsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Accept(b.ID, f.ProviderID)
	require.NoError(t, err)
	_, err = f.SM.Complete(b.ID, f.ProviderID)
	require.NoError(t, err)

	_, err = f.SM.Complete(b.ID, f.ProviderID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	// earnings credited exactly once
	var profile models.ProviderProfile
	require.NoError(t, f.DB.First(&profile, "user_id = ?", f.ProviderID).Error)
	assert.Equal(t, 1, profile.JobsCompleted)
	assert.True(t, profile.TotalEarnings.Equal(f.Service.Price))
}

func TestStartRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Start(b.ID, f.ProviderID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestCancelRefundsCredits(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCredits)

	_, err := f.Ledger.Purchase(f.CustomerID, 20)
	require.NoError(t, err)

	// simulate a credits payment
	err = f.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := f.Ledger.AppendTx(tx, f.CustomerID, -f.Service.CreditsRequired, models.CreditTrxUsed, &b.ID, "payment"); err != nil {
			return err
		}
		return tx.Model(&models.Booking{}).Where("id = ?", b.ID).Update("is_paid", true).Error
	})
	require.NoError(t, err)

	balance, err := f.Ledger.Balance(f.CustomerID)
	require.NoError(t, err)
	require.Equal(t, 5, balance)

	got, err := f.SM.Cancel(b.ID, f.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	balance, err = f.Ledger.Balance(f.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)
}

func TestCancelTerminalFails(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Cancel(b.ID, f.CustomerID)
	require.NoError(t, err)

	_, err = f.SM.Cancel(b.ID, f.CustomerID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestCancelRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Cancel(b.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotAuthorized, apperr.KindOf(err))
}

func TestRescheduleCustomerOnly(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Reschedule(b.ID, f.ProviderID, time.Now().AddDate(0, 0, 14), "14:00")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotAuthorized, apperr.KindOf(err))

	newDate := time.Now().AddDate(0, 0, 14)
	got, err := f.SM.Reschedule(b.ID, f.CustomerID, newDate, "14:00")
	require.NoError(t, err)
	assert.Equal(t, "14:00", got.ScheduledTime)
	assert.Equal(t, models.BookingStatusPending, got.Status)
}

func TestRescheduleOngoingFails(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, models.MethodCard)

	_, err := f.SM.Accept(b.ID, f.ProviderID)
	require.NoError(t, err)
	_, err = f.SM.Start(b.ID, f.ProviderID)
	require.NoError(t, err)

	_, err = f.SM.Reschedule(b.ID, f.CustomerID, time.Now(), "09:00")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}
