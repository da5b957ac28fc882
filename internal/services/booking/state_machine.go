package booking

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/apperr"
	"github.com/danukusuma/servehub_be/internal/db"
	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/services/credits"
)

// Notifier delivers fire-and-forget user notifications after a transition
// commits. Implemented by notify.Dispatcher.
type Notifier interface {
	Notify(userID uuid.UUID, ntype models.NotificationType, title, message string, bookingID *uuid.UUID)
}

// StateMachine owns every booking status transition:
//
//	pending -> confirmed -> ongoing -> completed
//	pending|confirmed|ongoing -> cancelled
//
// completed and cancelled are terminal. Each transition runs in one DB
// transaction with the booking row locked, and the status is re-checked after
// the lock so concurrent attempts serialize instead of double-applying.
type StateMachine struct {
	DB       *gorm.DB
	Ledger   *credits.Ledger
	Notifier Notifier
}

func NewStateMachine(gdb *gorm.DB, ledger *credits.Ledger, notifier Notifier) *StateMachine {
	return &StateMachine{DB: gdb, Ledger: ledger, Notifier: notifier}
}

type CreateInput struct {
	ServiceID     uint
	ScheduledDate time.Time
	ScheduledTime string
	Notes         string
	PaymentMethod models.PaymentMethod
}

// Create opens a new booking for the customer. Bookings always start pending.
func (m *StateMachine) Create(customerID uuid.UUID, in CreateInput) (*models.Booking, error) {
	var svc models.Service
	if err := m.DB.First(&svc, "id = ? AND is_active = ?", in.ServiceID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "service not found")
		}
		return nil, err
	}
	if svc.ProviderID == customerID {
		return nil, apperr.New(apperr.KindValidation, "cannot book your own service")
	}

	b := models.Booking{
		CustomerID:    customerID,
		ProviderID:    svc.ProviderID,
		ServiceID:     svc.ID,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		Status:        models.BookingStatusPending,
		Notes:         in.Notes,
		TotalAmount:   svc.Price,
		PaymentMethod: in.PaymentMethod,
	}
	if err := m.DB.Create(&b).Error; err != nil {
		return nil, err
	}

	m.Notifier.Notify(svc.ProviderID, models.NotifyBooking,
		"New booking request", "You have a new booking request for "+svc.Title, &b.ID)

	return &b, nil
}

// Accept moves a pending booking to confirmed. Only the booked provider may
// accept.
func (m *StateMachine) Accept(bookingID, actorID uuid.UUID) (*models.Booking, error) {
	return m.transition(bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.ProviderID != actorID {
			return apperr.New(apperr.KindNotAuthorized, "only the provider can accept this booking")
		}
		if b.Status != models.BookingStatusPending {
			return apperr.Transition(string(b.Status), "accept")
		}
		b.Status = models.BookingStatusConfirmed
		return nil
	}, func(b *models.Booking) {
		m.Notifier.Notify(b.CustomerID, models.NotifyBooking,
			"Booking confirmed", "Your booking was accepted by the provider", &b.ID)
	})
}

// Decline cancels a pending booking on behalf of the provider.
func (m *StateMachine) Decline(bookingID, actorID uuid.UUID) (*models.Booking, error) {
	return m.transition(bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.ProviderID != actorID {
			return apperr.New(apperr.KindNotAuthorized, "only the provider can decline this booking")
		}
		if b.Status != models.BookingStatusPending {
			return apperr.Transition(string(b.Status), "decline")
		}
		b.Status = models.BookingStatusCancelled
		return nil
	}, func(b *models.Booking) {
		m.Notifier.Notify(b.CustomerID, models.NotifyBooking,
			"Booking declined", "The provider declined your booking request", &b.ID)
	})
}

// Start moves a confirmed booking to ongoing when the provider begins work.
func (m *StateMachine) Start(bookingID, actorID uuid.UUID) (*models.Booking, error) {
	return m.transition(bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.ProviderID != actorID {
			return apperr.New(apperr.KindNotAuthorized, "only the provider can start this booking")
		}
		if b.Status != models.BookingStatusConfirmed {
			return apperr.Transition(string(b.Status), "start")
		}
		b.Status = models.BookingStatusOngoing
		return nil
	}, nil)
}

// Complete finishes a confirmed or ongoing booking and credits the provider's
// stats. The stat update happens in the same transaction as the status write,
// so a booking can never be double-completed into double earnings.
func (m *StateMachine) Complete(bookingID, actorID uuid.UUID) (*models.Booking, error) {
	return m.transition(bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.ProviderID != actorID {
			return apperr.New(apperr.KindNotAuthorized, "only the provider can complete this booking")
		}
		if b.Status != models.BookingStatusConfirmed && b.Status != models.BookingStatusOngoing {
			return apperr.Transition(string(b.Status), "complete")
		}
		b.Status = models.BookingStatusCompleted

		return creditProviderStats(tx, b.ProviderID, b.TotalAmount)
	}, func(b *models.Booking) {
		m.Notifier.Notify(b.CustomerID, models.NotifyBooking,
			"Booking completed", "Your booking is complete. You can now leave a review.", &b.ID)
	})
}

// Cancel is reachable from any non-terminal state, by the customer or the
// provider. A credits-paid booking gets its credits back through a refund
// ledger row inside the same transaction.
func (m *StateMachine) Cancel(bookingID, actorID uuid.UUID) (*models.Booking, error) {
	return m.transition(bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.CustomerID != actorID && b.ProviderID != actorID {
			return apperr.New(apperr.KindNotAuthorized, "not a participant of this booking")
		}
		if b.Status.Terminal() {
			return apperr.Transition(string(b.Status), "cancel")
		}
		b.Status = models.BookingStatusCancelled

		if b.PaymentMethod == models.MethodCredits && b.IsPaid {
			var svc models.Service
			if err := tx.First(&svc, "id = ?", b.ServiceID).Error; err != nil {
				return err
			}
			desc := fmt.Sprintf("Refund for cancelled booking #%s", shortID(b.ID))
			if _, err := m.Ledger.AppendTx(tx, b.CustomerID, svc.CreditsRequired, models.CreditTrxRefund, &b.ID, desc); err != nil {
				return err
			}
		}
		return nil
	}, func(b *models.Booking) {
		other := b.ProviderID
		if actorID == b.ProviderID {
			other = b.CustomerID
		}
		m.Notifier.Notify(other, models.NotifyBooking,
			"Booking cancelled", "The booking has been cancelled", &b.ID)
	})
}

// Reschedule updates the schedule of a pending or confirmed booking. Only the
// customer may reschedule; the status is untouched.
func (m *StateMachine) Reschedule(bookingID, actorID uuid.UUID, newDate time.Time, newTime string) (*models.Booking, error) {
	return m.transition(bookingID, func(tx *gorm.DB, b *models.Booking) error {
		if b.CustomerID != actorID {
			return apperr.New(apperr.KindNotAuthorized, "only the customer can reschedule this booking")
		}
		if b.Status != models.BookingStatusPending && b.Status != models.BookingStatusConfirmed {
			return apperr.Transition(string(b.Status), "reschedule")
		}
		if !newDate.IsZero() {
			b.ScheduledDate = newDate
		}
		if newTime != "" {
			b.ScheduledTime = newTime
		}
		return nil
	}, func(b *models.Booking) {
		m.Notifier.Notify(b.ProviderID, models.NotifyBooking,
			"Booking rescheduled", "The customer rescheduled a booking", &b.ID)
	})
}

// transition loads and locks the booking, applies mutate, and saves — all in
// one transaction. afterCommit runs only when the transaction committed.
func (m *StateMachine) transition(bookingID uuid.UUID, mutate func(tx *gorm.DB, b *models.Booking) error, afterCommit func(b *models.Booking)) (*models.Booking, error) {
	var b models.Booking
	err := m.DB.Transaction(func(tx *gorm.DB) error {
		if err := db.ForUpdate(tx).First(&b, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "booking not found")
			}
			return err
		}
		if err := mutate(tx, &b); err != nil {
			return err
		}
		b.UpdatedAt = time.Now()
		return tx.Save(&b).Error
	})
	if err != nil {
		return nil, err
	}

	if afterCommit != nil {
		afterCommit(&b)
	}
	return &b, nil
}

func creditProviderStats(tx *gorm.DB, providerID uuid.UUID, amount decimal.Decimal) error {
	result := tx.Model(&models.ProviderProfile{}).
		Where("user_id = ?", providerID).
		Updates(map[string]interface{}{
			"jobs_completed": gorm.Expr("jobs_completed + 1"),
			"total_earnings": gorm.Expr("total_earnings + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "provider profile not found for user %s", providerID)
	}
	log.Printf("Provider %s stats updated (+%s earnings)", providerID, amount)
	return nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
