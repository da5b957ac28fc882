package payments

import (
	"encoding/json"
	"errors"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/db"
	"github.com/danukusuma/servehub_be/internal/models"
)

// Gateway webhook event types. Delivery is at-least-once, so every handler
// below must be a no-op on replay.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventPaymentCanceled  = "payment_canceled"
	EventChargeRefunded   = "charge_refunded"
)

type WebhookEvent struct {
	Type       string          `json:"type"`
	ObjectID   string          `json:"object_id"` // gateway intent/charge id
	RawPayload json.RawMessage `json:"raw_payload"`
}

// HandleWebhook reconciles a verified gateway event into Payment and Booking
// state. An event referencing an unknown transaction is logged and swallowed;
// the gateway retrying it will not make it any more known.
func (o *Orchestrator) HandleWebhook(event WebhookEvent) error {
	switch event.Type {
	case EventPaymentSucceeded:
		return o.reconcileSucceeded(event)
	case EventPaymentFailed, EventPaymentCanceled:
		return o.reconcileFailed(event)
	case EventChargeRefunded:
		return o.reconcileRefunded(event)
	default:
		log.Printf("Ignoring unhandled webhook event type %q", event.Type)
		return nil
	}
}

func (o *Orchestrator) reconcileSucceeded(event WebhookEvent) error {
	return o.reconcile(event, func(tx *gorm.DB, payment *models.Payment) (func(), error) {
		if payment.Status == models.PaymentStatusCompleted {
			return nil, nil // replay
		}

		payment.Status = models.PaymentStatusCompleted
		payment.GatewayResponse = datatypes.JSON(event.RawPayload)
		if err := tx.Save(payment).Error; err != nil {
			return nil, err
		}

		var booking models.Booking
		if err := db.ForUpdate(tx).First(&booking, "id = ?", payment.BookingID).Error; err != nil {
			return nil, err
		}
		booking.IsPaid = true
		if booking.Status == models.BookingStatusPending {
			booking.Status = models.BookingStatusConfirmed
		}
		if err := tx.Save(&booking).Error; err != nil {
			return nil, err
		}

		return func() {
			o.Notifier.Notify(payment.UserID, models.NotifyPayment,
				"Payment received", "Your payment was confirmed", &payment.BookingID)
		}, nil
	})
}

func (o *Orchestrator) reconcileFailed(event WebhookEvent) error {
	return o.reconcile(event, func(tx *gorm.DB, payment *models.Payment) (func(), error) {
		switch payment.Status {
		case models.PaymentStatusPending, models.PaymentStatusProcessing:
			payment.Status = models.PaymentStatusFailed
			payment.GatewayResponse = datatypes.JSON(event.RawPayload)
			if err := tx.Save(payment).Error; err != nil {
				return nil, err
			}
			return func() {
				o.Notifier.Notify(payment.UserID, models.NotifyPayment,
					"Payment failed", "Your payment could not be completed", &payment.BookingID)
			}, nil
		}
		return nil, nil
	})
}

func (o *Orchestrator) reconcileRefunded(event WebhookEvent) error {
	return o.reconcile(event, func(tx *gorm.DB, payment *models.Payment) (func(), error) {
		if payment.Status == models.PaymentStatusRefunded {
			return nil, nil // replay
		}
		payment.Status = models.PaymentStatusRefunded
		payment.GatewayResponse = datatypes.JSON(event.RawPayload)
		return nil, tx.Save(payment).Error
	})
}

// reconcile loads and locks the payment, applies the event, and runs the
// callback apply returned only after the transaction committed, so a rollback
// can never leave a notification behind.
func (o *Orchestrator) reconcile(event WebhookEvent, apply func(tx *gorm.DB, payment *models.Payment) (func(), error)) error {
	var afterCommit func()
	err := o.DB.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := db.ForUpdate(tx).First(&payment, "transaction_id = ?", event.ObjectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Webhook %s references unknown transaction %s", event.Type, event.ObjectID)
			return nil
		}
		if err != nil {
			return err
		}
		afterCommit, err = apply(tx, &payment)
		return err
	})
	if err != nil {
		return err
	}

	if afterCommit != nil {
		afterCommit()
	}
	return nil
}
