package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/apperr"
	"github.com/danukusuma/servehub_be/internal/db"
	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/services/credits"
	"github.com/danukusuma/servehub_be/internal/services/stripegw"
)

const (
	MinInstallments     = 2
	MaxInstallments     = 12
	DefaultInstallments = 3
)

// Gateway is the slice of the card gateway the orchestrator needs. Satisfied
// by *stripegw.Client; stubbed in tests.
type Gateway interface {
	CreateIntent(amount decimal.Decimal, customerRef string, metadata map[string]string) (*stripegw.Intent, error)
	Confirm(intentID string) (string, error)
	CreateRefund(intentID string, amount *decimal.Decimal) (*stripegw.Refund, error)
}

type Notifier interface {
	Notify(userID uuid.UUID, ntype models.NotificationType, title, message string, bookingID *uuid.UUID)
}

// Orchestrator picks the payment strategy for a booking (credits, installment,
// gateway-immediate, gateway-deferred), creates Payment/Installment records and
// reconciles gateway webhook events back into Payment and Booking state.
type Orchestrator struct {
	DB       *gorm.DB
	Ledger   *credits.Ledger
	Gateway  Gateway
	Notifier Notifier
}

func NewOrchestrator(gdb *gorm.DB, ledger *credits.Ledger, gateway Gateway, notifier Notifier) *Orchestrator {
	return &Orchestrator{DB: gdb, Ledger: ledger, Gateway: gateway, Notifier: notifier}
}

type ProcessInput struct {
	BookingID        uuid.UUID
	PaymentType      models.PaymentType
	PaymentMethod    models.PaymentMethod
	InstallmentCount int
}

// Process runs the payment for a booking on behalf of its customer.
func (o *Orchestrator) Process(customerID uuid.UUID, in ProcessInput) (*models.Payment, error) {
	booking, err := o.customerBooking(customerID, in.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsPaid {
		return nil, apperr.New(apperr.KindAlreadyPaid, "booking is already paid")
	}

	switch {
	case in.PaymentMethod == models.MethodCredits:
		return o.payWithCredits(booking, in)
	case in.PaymentType == models.PaymentTypeInstallment:
		return o.createInstallmentPlan(booking, in)
	default:
		return o.payViaGateway(booking, in)
	}
}

// payWithCredits debits the ledger, records a completed payment and marks the
// booking paid as one atomic unit. A failed balance check leaves nothing
// behind.
func (o *Orchestrator) payWithCredits(booking *models.Booking, in ProcessInput) (*models.Payment, error) {
	if booking.Service == nil {
		return nil, apperr.New(apperr.KindNotFound, "service not found")
	}

	balance, err := o.Ledger.Balance(booking.CustomerID)
	if err != nil {
		return nil, err
	}
	required := booking.Service.CreditsRequired
	if balance < required {
		return nil, apperr.Newf(apperr.KindInsufficientCredits,
			"insufficient credits: balance %d, required %d", balance, required)
	}

	var payment models.Payment
	err = o.DB.Transaction(func(tx *gorm.DB) error {
		// Re-read is_paid under the row lock; the guard in Process ran on a
		// snapshot a concurrent payment may have outdated by now.
		var locked models.Booking
		if err := db.ForUpdate(tx).First(&locked, "id = ?", booking.ID).Error; err != nil {
			return err
		}
		if locked.IsPaid {
			return apperr.New(apperr.KindAlreadyPaid, "booking is already paid")
		}

		desc := fmt.Sprintf("Payment for booking #%s", shortID(booking.ID))
		// AppendTx re-reads the balance under the user lock, so a concurrent
		// debit cannot sneak past the check above.
		row, err := o.Ledger.AppendTx(tx, booking.CustomerID, -required, models.CreditTrxUsed, &booking.ID, desc)
		if err != nil {
			return err
		}
		if row.BalanceAfter < 0 {
			return apperr.Newf(apperr.KindInsufficientCredits,
				"insufficient credits: balance %d, required %d", row.BalanceAfter+required, required)
		}

		payment = models.Payment{
			BookingID:     booking.ID,
			UserID:        booking.CustomerID,
			Amount:        booking.TotalAmount,
			PaymentType:   models.PaymentTypeCredits,
			PaymentMethod: models.MethodCredits,
			Status:        models.PaymentStatusCompleted,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		return tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("is_paid", true).Error
	})
	if err != nil {
		return nil, err
	}

	o.Notifier.Notify(booking.ProviderID, models.NotifyPayment,
		"Booking paid", "The customer paid with credits", &booking.ID)
	return &payment, nil
}

// createInstallmentPlan records a processing payment plus its schedule. The
// booking stays unpaid until the installments settle; settlement itself is
// outside this flow.
func (o *Orchestrator) createInstallmentPlan(booking *models.Booking, in ProcessInput) (*models.Payment, error) {
	count := in.InstallmentCount
	if count == 0 {
		count = DefaultInstallments
	}
	if count < MinInstallments || count > MaxInstallments {
		return nil, apperr.Newf(apperr.KindValidation,
			"installment count must be between %d and %d", MinInstallments, MaxInstallments)
	}

	amounts := SplitAmount(booking.TotalAmount, count)

	var payment models.Payment
	err := o.DB.Transaction(func(tx *gorm.DB) error {
		payment = models.Payment{
			BookingID:     booking.ID,
			UserID:        booking.CustomerID,
			Amount:        booking.TotalAmount,
			PaymentType:   models.PaymentTypeInstallment,
			PaymentMethod: in.PaymentMethod,
			Status:        models.PaymentStatusProcessing,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		today := time.Now().Truncate(24 * time.Hour)
		for i, amount := range amounts {
			inst := models.Installment{
				PaymentID:         payment.ID,
				InstallmentNumber: i + 1,
				Amount:            amount,
				DueDate:           today.AddDate(0, 0, 30*(i+1)),
				Status:            models.InstallmentStatusPending,
			}
			if err := tx.Create(&inst).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// payViaGateway handles the immediate and later card flows. Any gateway
// failure aborts before anything is persisted.
func (o *Orchestrator) payViaGateway(booking *models.Booking, in ProcessInput) (*models.Payment, error) {
	intent, err := o.Gateway.CreateIntent(booking.TotalAmount, booking.CustomerID.String(), map[string]string{
		"booking_id": booking.ID.String(),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "failed to create payment intent", err)
	}

	if in.PaymentType == models.PaymentTypeImmediate {
		status, err := o.Gateway.Confirm(intent.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindGateway, "failed to confirm payment", err)
		}
		if status != "succeeded" {
			return nil, apperr.Newf(apperr.KindGateway, "payment not completed by gateway (status %s)", status)
		}

		var payment models.Payment
		err = o.DB.Transaction(func(tx *gorm.DB) error {
			var locked models.Booking
			if err := db.ForUpdate(tx).First(&locked, "id = ?", booking.ID).Error; err != nil {
				return err
			}
			if locked.IsPaid {
				return apperr.New(apperr.KindAlreadyPaid, "booking is already paid")
			}

			payment = models.Payment{
				BookingID:     booking.ID,
				UserID:        booking.CustomerID,
				Amount:        booking.TotalAmount,
				PaymentType:   models.PaymentTypeImmediate,
				PaymentMethod: in.PaymentMethod,
				Status:        models.PaymentStatusCompleted,
				TransactionID: intent.ID,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			return tx.Model(&models.Booking{}).
				Where("id = ?", booking.ID).
				Update("is_paid", true).Error
		})
		if err != nil {
			return nil, err
		}

		o.Notifier.Notify(booking.ProviderID, models.NotifyPayment,
			"Booking paid", "The customer completed payment", &booking.ID)
		return &payment, nil
	}

	// later: the payment stays pending until the gateway webhook confirms it
	payment := models.Payment{
		BookingID:     booking.ID,
		UserID:        booking.CustomerID,
		Amount:        booking.TotalAmount,
		PaymentType:   models.PaymentTypeLater,
		PaymentMethod: in.PaymentMethod,
		Status:        models.PaymentStatusPending,
		TransactionID: intent.ID,
	}
	if err := o.DB.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

type IntentResult struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	IntentID     string          `json:"payment_intent_id"`
	ClientSecret string          `json:"client_secret"`
	Amount       decimal.Decimal `json:"amount"`
}

// CreateIntent opens a gateway intent for client-side confirmation and records
// a processing payment carrying the intent id.
func (o *Orchestrator) CreateIntent(customerID, bookingID uuid.UUID) (*IntentResult, error) {
	booking, err := o.customerBooking(customerID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsPaid {
		return nil, apperr.New(apperr.KindAlreadyPaid, "booking is already paid")
	}

	intent, err := o.Gateway.CreateIntent(booking.TotalAmount, customerID.String(), map[string]string{
		"booking_id": booking.ID.String(),
		"service_id": fmt.Sprintf("%d", booking.ServiceID),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "failed to create payment intent", err)
	}

	payment := models.Payment{
		BookingID:     booking.ID,
		UserID:        customerID,
		Amount:        booking.TotalAmount,
		PaymentType:   models.PaymentTypeImmediate,
		PaymentMethod: models.MethodCard,
		Status:        models.PaymentStatusProcessing,
		TransactionID: intent.ID,
	}
	if err := o.DB.Create(&payment).Error; err != nil {
		return nil, err
	}

	return &IntentResult{
		PaymentID:    payment.ID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       booking.TotalAmount,
	}, nil
}

// ConfirmPayment confirms a previously opened intent server-side. On gateway
// success the payment completes and the booking is marked paid, mirroring what
// the success webhook would do; whichever lands first wins, the other is a
// no-op.
func (o *Orchestrator) ConfirmPayment(userID, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := o.DB.First(&payment, "id = ? AND user_id = ?", paymentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "payment not found")
		}
		return nil, err
	}

	switch payment.Status {
	case models.PaymentStatusCompleted:
		return nil, apperr.New(apperr.KindAlreadyPaid, "payment already completed")
	case models.PaymentStatusPending, models.PaymentStatusProcessing:
		// confirmable
	default:
		return nil, apperr.Newf(apperr.KindInvalidTransition,
			"cannot confirm payment in %s status", payment.Status)
	}
	if payment.TransactionID == "" {
		return nil, apperr.New(apperr.KindValidation, "payment has no gateway intent to confirm")
	}

	status, err := o.Gateway.Confirm(payment.TransactionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "failed to confirm payment", err)
	}
	if status != "succeeded" {
		return nil, apperr.Newf(apperr.KindGateway, "payment not completed by gateway (status %s)", status)
	}

	err = o.DB.Transaction(func(tx *gorm.DB) error {
		if err := db.ForUpdate(tx).First(&payment, "id = ?", payment.ID).Error; err != nil {
			return err
		}
		if payment.Status == models.PaymentStatusCompleted {
			return nil // webhook got here first
		}
		payment.Status = models.PaymentStatusCompleted
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		var booking models.Booking
		if err := db.ForUpdate(tx).First(&booking, "id = ?", payment.BookingID).Error; err != nil {
			return err
		}
		booking.IsPaid = true
		if booking.Status == models.BookingStatusPending {
			booking.Status = models.BookingStatusConfirmed
		}
		return tx.Save(&booking).Error
	})
	if err != nil {
		return nil, err
	}

	o.Notifier.Notify(userID, models.NotifyPayment,
		"Payment confirmed", "Your payment was completed", &payment.BookingID)
	return &payment, nil
}

// Refund reverses a completed payment through the gateway, then marks the
// payment refunded and cancels the booking in one transaction.
func (o *Orchestrator) Refund(userID, paymentID uuid.UUID, amount *decimal.Decimal) (*models.Payment, error) {
	var payment models.Payment
	if err := o.DB.First(&payment, "id = ? AND user_id = ?", paymentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "payment not found")
		}
		return nil, err
	}

	switch payment.Status {
	case models.PaymentStatusRefunded:
		return nil, apperr.New(apperr.KindAlreadyRefunded, "payment already refunded")
	case models.PaymentStatusCompleted:
		// refundable
	default:
		return nil, apperr.Newf(apperr.KindInvalidTransition,
			"can only refund completed payments (status %s)", payment.Status)
	}

	if payment.TransactionID != "" {
		if _, err := o.Gateway.CreateRefund(payment.TransactionID, amount); err != nil {
			return nil, apperr.Wrap(apperr.KindGateway, "gateway refund failed", err)
		}
	}

	err := o.DB.Transaction(func(tx *gorm.DB) error {
		// Re-check under lock so a concurrent refund cannot double-apply.
		if err := db.ForUpdate(tx).First(&payment, "id = ?", payment.ID).Error; err != nil {
			return err
		}
		if payment.Status == models.PaymentStatusRefunded {
			return apperr.New(apperr.KindAlreadyRefunded, "payment already refunded")
		}

		if err := tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Update("status", models.PaymentStatusRefunded).Error; err != nil {
			return err
		}
		payment.Status = models.PaymentStatusRefunded

		return tx.Model(&models.Booking{}).
			Where("id = ?", payment.BookingID).
			Update("status", models.BookingStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	o.Notifier.Notify(userID, models.NotifyPayment,
		"Refund processed", "Your payment has been refunded", &payment.BookingID)
	return &payment, nil
}

func (o *Orchestrator) customerBooking(customerID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := o.DB.Preload("Service").First(&booking, "id = ? AND customer_id = ?", bookingID, customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "booking not found")
		}
		return nil, err
	}
	return &booking, nil
}

// SplitAmount divides total into n parts that sum to total exactly; the last
// part absorbs the rounding remainder.
func SplitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	per := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	amounts := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		amounts[i] = per
		running = running.Add(per)
	}
	amounts[n-1] = total.Sub(running)
	return amounts
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
